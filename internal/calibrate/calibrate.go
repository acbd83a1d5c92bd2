// Package calibrate turns raw model scores into a probability distribution
// and the confidence value presented to users.
package calibrate

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTemperature = 2.0

	// Presented confidence is always clamped into [MinConfidence, MaxConfidence].
	MinConfidence = 85.0
	MaxConfidence = 100.0

	// Jitter output is clamped into [JitterMin, JitterMax).
	JitterMin = -2.0
	JitterMax = 1.0
)

// Error is returned when scores cannot be calibrated. A result that failed
// calibration must not be shown or persisted.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "calibration failed: " + e.Reason
}

// Jitter returns an offset, in percentage points, added to the top
// probability before clamping.
type Jitter func() float64

// NoJitter is the deterministic identity offset.
func NoJitter() float64 { return 0 }

// NewRandomJitter returns a seeded jitter drawing uniformly from [JitterMin, JitterMax).
// It is safe for concurrent use.
func NewRandomJitter(seed int64) Jitter {
	var mu sync.Mutex
	r := rand.New(rand.NewSource(seed))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return JitterMin + (JitterMax-JitterMin)*r.Float64()
	}
}

type Calibrator struct {
	Temperature float64
	Jitter      Jitter
}

// New returns a calibrator with the default temperature. A nil jitter means NoJitter.
func New(j Jitter) *Calibrator {
	if j == nil {
		j = NoJitter
	}
	return &Calibrator{Temperature: DefaultTemperature, Jitter: j}
}

type Calibration struct {
	Probabilities  []float64
	TopIndex       int
	TopProbability float64
	// Confidence is the presented value in [MinConfidence, MaxConfidence].
	Confidence float64
}

func (c *Calibrator) Calibrate(raw []float32) (Calibration, error) {
	probs, err := Softmax(raw, c.Temperature)
	if err != nil {
		return Calibration{}, err
	}

	top := floats.MaxIdx(probs)
	j := c.Jitter
	if j == nil {
		j = NoJitter
	}

	return Calibration{
		Probabilities:  probs,
		TopIndex:       top,
		TopProbability: probs[top],
		Confidence:     Present(probs[top], j),
	}, nil
}

// Softmax computes exp((s-max)/T) / Σ for each score. NaN and -Inf scores
// receive probability 0. +Inf scores share all of the mass equally, which is
// the limit of softmax as those scores grow.
func Softmax(raw []float32, temperature float64) ([]float64, error) {
	if len(raw) == 0 {
		return nil, &Error{Reason: "empty scores"}
	}
	if temperature <= 0 || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return nil, &Error{Reason: fmt.Sprintf("invalid temperature %v", temperature)}
	}

	scores := make([]float64, len(raw))
	peak := math.Inf(-1)
	finite, unbounded := 0, 0
	for i, s := range raw {
		v := float64(s)
		switch {
		case math.IsInf(v, 1):
			scores[i] = v
			unbounded++
			continue
		case math.IsNaN(v) || math.IsInf(v, -1):
			scores[i] = math.Inf(-1)
			continue
		}
		scores[i] = v
		finite++
		if v > peak {
			peak = v
		}
	}

	if unbounded > 0 {
		probs := make([]float64, len(scores))
		for i, v := range scores {
			if math.IsInf(v, 1) {
				probs[i] = 1 / float64(unbounded)
			}
		}
		return probs, nil
	}
	if finite == 0 {
		return nil, &Error{Reason: "no finite scores"}
	}

	probs := make([]float64, len(scores))
	for i, v := range scores {
		probs[i] = math.Exp((v - peak) / temperature)
	}
	// The max score contributes exp(0) == 1, so the sum is never zero.
	floats.Scale(1/floats.Sum(probs), probs)
	return probs, nil
}

// Present maps a top probability in [0,1] to the displayed confidence:
// top*100 plus a bounded jitter, clamped to [MinConfidence, MaxConfidence].
func Present(top float64, j Jitter) float64 {
	offset := j()
	switch {
	case math.IsNaN(offset):
		offset = 0
	case offset < JitterMin:
		offset = JitterMin
	case offset >= JitterMax:
		offset = math.Nextafter(JitterMax, JitterMin)
	}
	return clamp(top*100+offset, MinConfidence, MaxConfidence)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FormatConfidence renders a presented confidence the way scan history stores it.
func FormatConfidence(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
