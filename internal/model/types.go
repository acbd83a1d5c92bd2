package model

// Runner executes one forward pass. Implementations are not assumed to be
// reentrant; Engine serializes every call.
type Runner interface {
	// Run returns the raw scores for input. The returned slice may alias
	// runner-owned memory and is only valid until the next call.
	Run(input []float32) ([]float32, error)
	// InputSide is the side length S of the square S×S×3 input.
	InputSide() int
	// OutputWidth is the number of scores produced per call.
	OutputWidth() int
	Close() error
}

type Config struct {
	ModelPath  string
	LabelsPath string
	// SharedLibraryPath points at the onnxruntime shared library; empty uses
	// the runtime's default lookup.
	SharedLibraryPath string
	NumThreads        int
}
