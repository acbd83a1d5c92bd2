package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/Brownie44l1/plant-doctor/internal/history"
)

// Scanner classifies an image and hands successful results to the history
// recorder without waiting for the write.
type Scanner struct {
	classifier *Classifier
	recorder   *history.Recorder
	now        func() time.Time
}

func NewScanner(classifier *Classifier, recorder *history.Recorder) *Scanner {
	return &Scanner{classifier: classifier, recorder: recorder, now: time.Now}
}

func (s *Scanner) Classifier() *Classifier { return s.classifier }

// Scan returns the classification and, when a result was produced, a
// channel reporting whether it was persisted. The channel is nil for dark
// frames and failed classifications, which are never recorded.
func (s *Scanner) Scan(ctx context.Context, img image.Image, imageRef string) (Outcome, <-chan history.Persisted, error) {
	out, err := s.classifier.Classify(ctx, img)
	if err != nil || out.Status != StatusClassified {
		return out, nil, err
	}

	item := history.Item{
		ImageRef:   imageRef,
		Prediction: out.Result.DisplayLabel,
		Confidence: out.Result.ConfidenceText(),
		Timestamp:  s.now().UnixMilli(),
	}
	return out, s.recorder.Submit(ctx, item), nil
}
