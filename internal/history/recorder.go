package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Brownie44l1/plant-doctor/internal/metrics"
)

var ErrRecorderClosed = errors.New("history recorder closed")

// Persisted reports the outcome of one submitted item. On success Item.ID
// holds the id assigned by the store.
type Persisted struct {
	Item Item
	Err  error
}

type job struct {
	item   Item
	result chan Persisted
}

// Recorder persists scan history in the background so callers can return a
// classification before the write is durable. Items are written in
// submission order by a single worker.
type Recorder struct {
	store  Inserter
	logger *log.Logger
	jobs   chan job
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(store Inserter, queueSize int, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	if queueSize < 0 {
		queueSize = 0
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		jobs:   make(chan job, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Submit queues item and returns immediately. The returned channel receives
// exactly one Persisted value. ctx only bounds the wait for queue space;
// once queued the write is not tied to ctx. Items that cannot be queued are
// logged and counted as failed writes.
func (r *Recorder) Submit(ctx context.Context, item Item) <-chan Persisted {
	result := make(chan Persisted, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.reject(result, item, ErrRecorderClosed)
		return result
	}

	select {
	case r.jobs <- job{item: item, result: result}:
		metrics.HistoryQueueDepth.Inc()
	case <-ctx.Done():
		r.reject(result, item, fmt.Errorf("history queue full: %w", ctx.Err()))
	}
	return result
}

// reject reports an item that never reached the queue. The value is on the
// channel before Submit returns.
func (r *Recorder) reject(result chan Persisted, item Item, err error) {
	metrics.HistoryWrites.WithLabelValues("failed").Inc()
	r.logger.Printf("history: dropped scan of %s: %v", item.ImageRef, err)
	result <- Persisted{Item: item, Err: err}
}

// Close stops accepting items and waits until every queued item is written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)

	for j := range r.jobs {
		metrics.HistoryQueueDepth.Dec()

		id, err := r.store.Insert(context.Background(), j.item)
		if err != nil {
			metrics.HistoryWrites.WithLabelValues("failed").Inc()
			r.logger.Printf("history: failed to persist scan of %s: %v", j.item.ImageRef, err)
			j.result <- Persisted{Item: j.item, Err: err}
			continue
		}

		metrics.HistoryWrites.WithLabelValues("ok").Inc()
		j.item.ID = id
		j.result <- Persisted{Item: j.item}
	}
}
