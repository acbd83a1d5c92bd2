package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/plant-doctor/assets"
	"github.com/Brownie44l1/plant-doctor/internal/calibrate"
	"github.com/Brownie44l1/plant-doctor/internal/history"
	"github.com/Brownie44l1/plant-doctor/internal/label"
	"github.com/Brownie44l1/plant-doctor/internal/model"
)

type stubRunner struct {
	side   int
	scores []float32
	err    error
	inputs [][]float32
}

func (s *stubRunner) Run(input []float32) ([]float32, error) {
	s.inputs = append(s.inputs, append([]float32(nil), input...))
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func (s *stubRunner) InputSide() int   { return s.side }
func (s *stubRunner) OutputWidth() int { return len(s.scores) }
func (s *stubRunner) Close() error     { return nil }

// sixtyOneLabels has tomato___healthy at index 5.
func sixtyOneLabels() label.Table {
	names := make([]string, 61)
	for i := range names {
		names[i] = "class_" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	names[5] = "Tomato___healthy"
	return label.NewTable(names)
}

func peakedScores(n, top int, v float32) []float32 {
	scores := make([]float32, n)
	scores[top] = v
	return scores
}

func newClassifier(t *testing.T, runner *stubRunner, labels label.Table) *Classifier {
	t.Helper()
	eng, err := model.New(runner, labels)
	require.NoError(t, err)
	return NewClassifier(eng, calibrate.New(calibrate.NoJitter))
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var leafGreen = color.RGBA{R: 90, G: 160, B: 70, A: 255}

func TestClassifyHealthyTomato(t *testing.T) {
	runner := &stubRunner{side: 8, scores: peakedScores(61, 5, 10)}
	c := newClassifier(t, runner, sixtyOneLabels())

	out, err := c.Classify(context.Background(), solid(32, 32, leafGreen))
	require.NoError(t, err)
	require.Equal(t, StatusClassified, out.Status)

	res := out.Result
	assert.Equal(t, 5, res.TopIndex)
	assert.Equal(t, "tomato___healthy", res.Label)
	assert.Equal(t, "Tomato   Healthy", res.DisplayLabel)
	assert.Equal(t, "👍 Regular monitoring and proper care.", res.Advice)
	assert.GreaterOrEqual(t, res.Confidence, calibrate.MinConfidence)
	assert.LessOrEqual(t, res.Confidence, calibrate.MaxConfidence)
	assert.Len(t, res.Probabilities, 61)
	assert.InDelta(t, 1.0, sum(res.Probabilities), 1e-9)

	require.Len(t, runner.inputs, 1)
	assert.Len(t, runner.inputs[0], 8*8*3)
}

func TestClassifyTooDark(t *testing.T) {
	runner := &stubRunner{side: 8, scores: peakedScores(61, 5, 10)}
	c := newClassifier(t, runner, sixtyOneLabels())

	out, err := c.Classify(context.Background(), solid(16, 16, color.Black))
	require.NoError(t, err)
	assert.Equal(t, StatusTooDark, out.Status)
	assert.Nil(t, out.Result)
	assert.Empty(t, runner.inputs, "dark frames must not reach the model")
}

func TestNeedsRetake(t *testing.T) {
	// A weak peak lands at the confidence floor.
	runner := &stubRunner{side: 4, scores: peakedScores(61, 5, 1)}
	out, err := newClassifier(t, runner, sixtyOneLabels()).Classify(context.Background(), solid(8, 8, leafGreen))
	require.NoError(t, err)
	assert.Equal(t, calibrate.MinConfidence, out.Result.Confidence)
	assert.True(t, out.Result.NeedsRetake)

	// A dominant peak is presented above the retake threshold.
	runner = &stubRunner{side: 4, scores: peakedScores(61, 5, 60)}
	out, err = newClassifier(t, runner, sixtyOneLabels()).Classify(context.Background(), solid(8, 8, leafGreen))
	require.NoError(t, err)
	assert.False(t, out.Result.NeedsRetake)

	// Unknown classes always ask for a retake.
	labels := label.NewTable([]string{"leaf", "unknown object"})
	runner = &stubRunner{side: 4, scores: []float32{0, 60}}
	out, err = newClassifier(t, runner, labels).Classify(context.Background(), solid(8, 8, leafGreen))
	require.NoError(t, err)
	assert.Equal(t, "unknown object", out.Result.Label)
	assert.True(t, out.Result.NeedsRetake)
}

func TestClassifyFallbackAdvice(t *testing.T) {
	labels := label.NewTable([]string{"Mystery leaf", "Other"})
	runner := &stubRunner{side: 4, scores: []float32{5, 0}}
	out, err := newClassifier(t, runner, labels).Classify(context.Background(), solid(8, 8, leafGreen))
	require.NoError(t, err)
	assert.Equal(t, "mystery leaf", out.Result.Label)
	assert.Contains(t, out.Result.Advice, "Consult an expert")
}

func TestClassifyTensorSkipsGate(t *testing.T) {
	runner := &stubRunner{side: 2, scores: []float32{0, 3}}
	c := newClassifier(t, runner, label.NewTable([]string{"a", "b"}))

	out, err := c.ClassifyTensor(context.Background(), make([]float32, 2*2*3))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.TopIndex)

	_, err = c.ClassifyTensor(context.Background(), make([]float32, 5))
	assert.ErrorIs(t, err, model.ErrInputShape)
}

func TestClassifyErrors(t *testing.T) {
	boom := errors.New("runtime exploded")
	runner := &stubRunner{side: 4, scores: []float32{0, 1}, err: boom}
	c := newClassifier(t, runner, label.NewTable([]string{"a", "b"}))
	_, err := c.Classify(context.Background(), solid(8, 8, leafGreen))
	assert.ErrorIs(t, err, boom)

	nan := float32(math.NaN())
	runner = &stubRunner{side: 4, scores: []float32{nan, nan}}
	c = newClassifier(t, runner, label.NewTable([]string{"a", "b"}))
	_, err = c.Classify(context.Background(), solid(8, 8, leafGreen))
	var cerr *calibrate.Error
	assert.ErrorAs(t, err, &cerr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner = &stubRunner{side: 4, scores: []float32{0, 1}}
	c = newClassifier(t, runner, label.NewTable([]string{"a", "b"}))
	_, err = c.Classify(ctx, solid(8, 8, leafGreen))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.inputs)
}

func TestClassifyAsync(t *testing.T) {
	runner := &stubRunner{side: 4, scores: []float32{2, 0}}
	c := newClassifier(t, runner, label.NewTable([]string{"a", "b"}))

	select {
	case got := <-c.ClassifyAsync(context.Background(), solid(8, 8, leafGreen)):
		require.NoError(t, got.Err)
		assert.Equal(t, 0, got.Outcome.Result.TopIndex)
	case <-time.After(5 * time.Second):
		t.Fatal("async classification never completed")
	}
}

func TestShippedLabelsEndToEnd(t *testing.T) {
	labels, err := assets.Labels()
	require.NoError(t, err)

	runner := &stubRunner{side: 4, scores: peakedScores(labels.Len(), 0, 40)}
	out, err := newClassifier(t, runner, labels).Classify(context.Background(), solid(8, 8, leafGreen))
	require.NoError(t, err)
	assert.Equal(t, "apple___apple_scab", out.Result.Label)
	assert.NotContains(t, out.Result.Advice, "Consult an expert")
}

func TestScanPersistsClassifiedResults(t *testing.T) {
	store, err := history.Open(context.Background(), history.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	rec := history.NewRecorder(store, 4, nil)
	runner := &stubRunner{side: 8, scores: peakedScores(61, 5, 10)}
	s := NewScanner(newClassifier(t, runner, sixtyOneLabels()), rec)
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	out, persisted, err := s.Scan(context.Background(), solid(16, 16, leafGreen), "uploads/leaf.jpg")
	require.NoError(t, err)
	require.Equal(t, StatusClassified, out.Status)
	require.NotNil(t, persisted)

	p := <-persisted
	require.NoError(t, p.Err)
	assert.Positive(t, p.Item.ID)

	dark, none, err := s.Scan(context.Background(), solid(16, 16, color.Black), "uploads/dark.jpg")
	require.NoError(t, err)
	assert.Equal(t, StatusTooDark, dark.Status)
	assert.Nil(t, none)

	rec.Close()

	items, err := store.ListAllDescendingByTime(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "uploads/leaf.jpg", items[0].ImageRef)
	assert.Equal(t, "Tomato   Healthy", items[0].Prediction)
	assert.Equal(t, out.Result.ConfidenceText(), items[0].Confidence)
	assert.Equal(t, int64(1_700_000_000_000), items[0].Timestamp)
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
