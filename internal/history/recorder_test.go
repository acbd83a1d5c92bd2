package history

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/plant-doctor/internal/metrics"
)

type fakeInserter struct {
	mu    sync.Mutex
	items []Item
	err   error
	gate  chan struct{}
}

func (f *fakeInserter) Insert(ctx context.Context, it Item) (int64, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.items = append(f.items, it)
	return int64(len(f.items)), nil
}

func TestRecorderPersistsInOrder(t *testing.T) {
	store := &fakeInserter{}
	r := NewRecorder(store, 8, nil)

	var results []<-chan Persisted
	for i, p := range []string{"a", "b", "c"} {
		results = append(results, r.Submit(context.Background(), Item{Prediction: p, Timestamp: int64(i)}))
	}
	r.Close()

	for i, ch := range results {
		got := <-ch
		require.NoError(t, got.Err)
		assert.Equal(t, int64(i+1), got.Item.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, []string{store.items[0].Prediction, store.items[1].Prediction, store.items[2].Prediction})
}

func TestRecorderReportsFailures(t *testing.T) {
	boom := errors.New("disk full")
	var buf bytes.Buffer
	r := NewRecorder(&fakeInserter{err: boom}, 1, log.New(&buf, "", 0))
	defer r.Close()

	got := <-r.Submit(context.Background(), Item{ImageRef: "leaf.jpg"})
	assert.ErrorIs(t, got.Err, boom)
	assert.Equal(t, int64(0), got.Item.ID)
	assert.Contains(t, buf.String(), "leaf.jpg")
}

func TestRecorderSubmitAfterClose(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&fakeInserter{}, 1, log.New(&buf, "", 0))
	r.Close()
	r.Close()

	got := <-r.Submit(context.Background(), Item{ImageRef: "late.jpg"})
	assert.ErrorIs(t, got.Err, ErrRecorderClosed)
	assert.Contains(t, buf.String(), "late.jpg")
}

func TestRecorderSubmitHonoursContextWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeInserter{gate: make(chan struct{})}
	r := NewRecorder(store, 0, log.New(&buf, "", 0))

	// The worker picks up the first item and blocks on the gate.
	first := r.Submit(context.Background(), Item{Prediction: "first"})

	failed := testutil.ToFloat64(metrics.HistoryWrites.WithLabelValues("failed"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := r.Submit(ctx, Item{ImageRef: "second.jpg", Prediction: "second"})

	// The rejection is delivered before Submit returns.
	select {
	case got := <-second:
		assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
	default:
		t.Fatal("rejected item has no result")
	}
	assert.Contains(t, buf.String(), "second.jpg")
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.HistoryWrites.WithLabelValues("failed")))

	close(store.gate)
	require.NoError(t, (<-first).Err)
	r.Close()
	assert.Len(t, store.items, 1)
}

func TestRecorderWriteOutlivesRequestContext(t *testing.T) {
	store := &fakeInserter{}
	r := NewRecorder(store, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Submit(ctx, Item{Prediction: "kept"})
	cancel()
	r.Close()

	require.NoError(t, (<-ch).Err)
	assert.Len(t, store.items, 1)
}
