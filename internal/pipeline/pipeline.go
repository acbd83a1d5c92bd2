// Package pipeline runs one classification request end to end: quality
// gate, tensor conversion, inference, calibration and advice lookup.
package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"github.com/Brownie44l1/plant-doctor/internal/advice"
	"github.com/Brownie44l1/plant-doctor/internal/calibrate"
	"github.com/Brownie44l1/plant-doctor/internal/label"
	"github.com/Brownie44l1/plant-doctor/internal/metrics"
	"github.com/Brownie44l1/plant-doctor/internal/model"
	"github.com/Brownie44l1/plant-doctor/internal/preprocess"
	"github.com/Brownie44l1/plant-doctor/internal/quality"
)

// RetakeBelow is the presented confidence under which users are asked to
// retake the photo.
const RetakeBelow = 90.0

type Status int

const (
	StatusClassified Status = iota
	// StatusTooDark means the gate rejected the frame; it is not an error.
	StatusTooDark
)

func (s Status) String() string {
	switch s {
	case StatusClassified:
		return "classified"
	case StatusTooDark:
		return "too_dark"
	default:
		return "unknown"
	}
}

// Result is one successful classification. It is never modified after
// being returned.
type Result struct {
	Label         string
	DisplayLabel  string
	TopIndex      int
	Confidence    float64
	Probabilities []float64
	Advice        string
	NeedsRetake   bool
}

// ConfidenceText is the confidence as stored in scan history.
func (r *Result) ConfidenceText() string {
	return calibrate.FormatConfidence(r.Confidence)
}

type Outcome struct {
	Status Status
	// Result is nil unless Status is StatusClassified.
	Result *Result
}

// Engine is the inference side of the pipeline; *model.Engine implements it.
type Engine interface {
	Labels() label.Table
	InputSide() int
	Classify(ctx context.Context, tensor []float32) ([]float32, error)
}

type Classifier struct {
	engine     Engine
	calibrator *calibrate.Calibrator
}

func NewClassifier(engine Engine, calibrator *calibrate.Calibrator) *Classifier {
	if calibrator == nil {
		calibrator = calibrate.New(nil)
	}
	return &Classifier{engine: engine, calibrator: calibrator}
}

// Classify gates img, then runs it through the model. A dark frame yields
// StatusTooDark with a nil error.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (Outcome, error) {
	if !quality.IsAcceptable(img) {
		metrics.Classifications.WithLabelValues(metrics.OutcomeTooDark).Inc()
		return Outcome{Status: StatusTooDark}, nil
	}

	tensor, err := preprocess.ToTensor(ctx, img, c.engine.InputSide())
	if err != nil {
		countFailure(err)
		return Outcome{}, err
	}
	return c.ClassifyTensor(ctx, tensor)
}

// ClassifyTensor classifies an already prepared tensor without gating.
func (c *Classifier) ClassifyTensor(ctx context.Context, tensor []float32) (Outcome, error) {
	start := time.Now()
	scores, err := c.engine.Classify(ctx, tensor)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		countFailure(err)
		return Outcome{}, err
	}

	cal, err := c.calibrator.Calibrate(scores)
	if err != nil {
		countFailure(err)
		return Outcome{}, err
	}

	name := c.engine.Labels().Name(cal.TopIndex)
	res := &Result{
		Label:         name,
		DisplayLabel:  label.Display(name),
		TopIndex:      cal.TopIndex,
		Confidence:    cal.Confidence,
		Probabilities: cal.Probabilities,
		Advice:        advice.For(name),
		NeedsRetake:   cal.Confidence < RetakeBelow || strings.Contains(name, "unknown"),
	}

	metrics.Classifications.WithLabelValues(metrics.OutcomeClassified).Inc()
	return Outcome{Status: StatusClassified, Result: res}, nil
}

type AsyncOutcome struct {
	Outcome Outcome
	Err     error
}

// ClassifyAsync runs Classify on its own goroutine. The channel receives
// exactly one value.
func (c *Classifier) ClassifyAsync(ctx context.Context, img image.Image) <-chan AsyncOutcome {
	ch := make(chan AsyncOutcome, 1)
	go func() {
		out, err := c.Classify(ctx, img)
		ch <- AsyncOutcome{Outcome: out, Err: err}
	}()
	return ch
}

func countFailure(err error) {
	var (
		perr *preprocess.Error
		cerr *calibrate.Error
	)
	outcome := metrics.OutcomeInferenceError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeCancelled
	case errors.As(err, &perr):
		outcome = metrics.OutcomePreprocessError
	case errors.As(err, &cerr):
		outcome = metrics.OutcomeCalibrationError
	}
	metrics.Classifications.WithLabelValues(outcome).Inc()
}

var _ Engine = (*model.Engine)(nil)
