package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxRunner keeps one session bound to pre-allocated input and output tensors.
type onnxRunner struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	side         int
	width        int
}

func openONNX(cfg Config) (*onnxRunner, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("empty model path")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, err
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model io: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat || out.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("model io must be float32 (in:%v out:%v)", in.DataType, out.DataType)
	}

	inputShape := concrete(in.Dimensions)
	if len(inputShape) != 4 || inputShape[1] != inputShape[2] || inputShape[3] != 3 {
		return nil, fmt.Errorf("expected [N,S,S,3] input, got %v", in.Dimensions)
	}
	outputShape := concrete(out.Dimensions)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	var opts *ort.SessionOptions
	if cfg.NumThreads > 0 {
		opts, err = ort.NewSessionOptions()
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer opts.Destroy()
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to set threads: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{in.Name}, []string{out.Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		opts)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxRunner{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		side:         int(inputShape[1]),
		width:        int(outputShape.FlattenedSize() / inputShape[0]),
	}, nil
}

// concrete replaces dynamic (non-positive) dimensions with 1, which pins
// the batch size to a single image.
func concrete(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

func (r *onnxRunner) Run(input []float32) ([]float32, error) {
	copy(r.inputTensor.GetData(), input)

	if err := r.session.Run(); err != nil {
		return nil, err
	}
	return r.outputTensor.GetData(), nil
}

func (r *onnxRunner) InputSide() int { return r.side }

func (r *onnxRunner) OutputWidth() int { return r.width }

func (r *onnxRunner) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.session != nil {
		keep(r.session.Destroy())
	}
	if r.inputTensor != nil {
		keep(r.inputTensor.Destroy())
	}
	if r.outputTensor != nil {
		keep(r.outputTensor.Destroy())
	}
	keep(ort.DestroyEnvironment())
	return firstErr
}
