package handlers

import (
	"github.com/Brownie44l1/plant-doctor/internal/pipeline"
)

// PredictionRequest carries an already preprocessed NHWC tensor.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

type PredictionResponse struct {
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	Label          string    `json:"label,omitempty"`
	DisplayLabel   string    `json:"display_label,omitempty"`
	ClassIndex     int       `json:"class_index"`
	Confidence     float64   `json:"confidence,omitempty"`
	ConfidenceText string    `json:"confidence_text,omitempty"`
	Advice         string    `json:"advice,omitempty"`
	NeedsRetake    bool      `json:"needs_retake"`
	Probabilities  []float64 `json:"probabilities,omitempty"`
	ImageRef       string    `json:"image_ref,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	tooDarkMessage = "Image too dark. Please retake in better lighting."
	retakeMessage  = "Low confidence or unknown prediction. Try retaking the photo."
)

func newPredictionResponse(out pipeline.Outcome) PredictionResponse {
	if out.Status == pipeline.StatusTooDark {
		return PredictionResponse{
			Status:      out.Status.String(),
			Message:     tooDarkMessage,
			ClassIndex:  -1,
			NeedsRetake: true,
		}
	}

	res := out.Result
	resp := PredictionResponse{
		Status:         out.Status.String(),
		Label:          res.Label,
		DisplayLabel:   res.DisplayLabel,
		ClassIndex:     res.TopIndex,
		Confidence:     res.Confidence,
		ConfidenceText: res.ConfidenceText(),
		Advice:         res.Advice,
		NeedsRetake:    res.NeedsRetake,
		Probabilities:  res.Probabilities,
	}
	if res.NeedsRetake {
		resp.Message = retakeMessage
	}
	return resp
}
