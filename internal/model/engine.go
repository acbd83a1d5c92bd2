package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Brownie44l1/plant-doctor/internal/label"
)

// LoadError is fatal: the engine cannot be used and there is nothing to retry.
type LoadError struct {
	Asset string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Asset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	ErrClosed     = errors.New("engine closed")
	ErrInputShape = errors.New("input tensor has wrong length")
)

// Engine owns a loaded model and its label table.
type Engine struct {
	mu     sync.Mutex
	runner Runner
	labels label.Table
	side   int
}

// Load opens the ONNX model and label asset described by cfg.
func Load(cfg Config) (*Engine, error) {
	labels, err := label.LoadFile(cfg.LabelsPath)
	if err != nil {
		return nil, &LoadError{Asset: "labels", Err: err}
	}

	runner, err := openONNX(cfg)
	if err != nil {
		return nil, &LoadError{Asset: "model", Err: err}
	}

	e, err := New(runner, labels)
	if err != nil {
		runner.Close()
		return nil, err
	}
	return e, nil
}

// New wraps an already opened runner. The runner's output width must match
// the label count.
func New(runner Runner, labels label.Table) (*Engine, error) {
	if runner == nil {
		return nil, &LoadError{Asset: "model", Err: errors.New("nil runner")}
	}
	if labels.Len() == 0 {
		return nil, &LoadError{Asset: "labels", Err: errors.New("no labels")}
	}
	if runner.OutputWidth() != labels.Len() {
		return nil, &LoadError{
			Asset: "model",
			Err:   fmt.Errorf("output width %d does not match %d labels", runner.OutputWidth(), labels.Len()),
		}
	}
	if runner.InputSide() <= 0 {
		return nil, &LoadError{Asset: "model", Err: fmt.Errorf("invalid input side %d", runner.InputSide())}
	}

	return &Engine{runner: runner, labels: labels, side: runner.InputSide()}, nil
}

func (e *Engine) Labels() label.Table { return e.labels }

func (e *Engine) InputSide() int { return e.side }

// InputLen is the tensor length Classify expects.
func (e *Engine) InputLen() int { return e.side * e.side * 3 }

// Classify runs one forward pass and returns a fresh copy of the raw scores,
// aligned with Labels().
func (e *Engine) Classify(ctx context.Context, tensor []float32) ([]float32, error) {
	if len(tensor) != e.InputLen() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputShape, len(tensor), e.InputLen())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner == nil {
		return nil, ErrClosed
	}
	// A request may have been superseded while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := e.runner.Run(tensor)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(out) != e.labels.Len() {
		return nil, fmt.Errorf("inference returned %d scores, want %d", len(out), e.labels.Len())
	}

	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner == nil {
		return nil
	}
	err := e.runner.Close()
	e.runner = nil
	return err
}
