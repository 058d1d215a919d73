package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// ProgressStore persists progress batches.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, updates []domain.ProgressUpdate) error
}

type progressBatch struct {
	ownerID string
	updates []domain.ProgressUpdate
}

// Dispatcher routes progress batches to a fixed set of workers using
// consistent hashing on the owner ID, so one owner's batches are written in
// the order they were recorded. Recording never blocks the caller: a batch
// that finds its worker queue full is dropped, since the next listing
// recomputes progress anyway.
type Dispatcher struct {
	workers []chan progressBatch
	store   ProgressStore
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each
// buffering up to queueSize batches. Non-positive values use the defaults.
func NewDispatcher(numWorkers, queueSize int, store ProgressStore, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		workers: make([]chan progressBatch, numWorkers),
		store:   store,
		timeout: defaultWriteTimeout,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan progressBatch, queueSize)
	}
	return d
}

// Start launches all worker goroutines. ctx bounds every store write; workers
// exit once Shutdown has closed their queues and they are drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record hands a progress batch to the worker responsible for ownerID.
func (d *Dispatcher) Record(ownerID string, updates []domain.ProgressUpdate) {
	if len(updates) == 0 {
		return
	}
	batch := progressBatch{ownerID: ownerID, updates: append([]domain.ProgressUpdate(nil), updates...)}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(batch, "dispatcher closed")
		return
	}

	idx := d.shardIndex(ownerID)
	select {
	case d.workers[idx] <- batch:
		metrics.ProgressQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		d.drop(batch, "queue full")
	}
}

// Shutdown stops accepting batches and waits for the queued ones to be
// written, or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("progress dispatcher: drain incomplete"), ctx.Err())
	}
}

// shardIndex maps an owner ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(ownerID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(batch progressBatch, reason string) {
	metrics.ProgressWritesTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("user_id", batch.ownerID).
		Int("updates", len(batch.updates)).
		Str("reason", reason).
		Msg("progress batch dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan progressBatch) {
	defer d.wg.Done()
	depth := metrics.ProgressQueueDepth.WithLabelValues(strconv.Itoa(id))

	for batch := range ch {
		depth.Dec()
		d.write(ctx, id, batch)
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, batch progressBatch) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.store.UpdateProgress(ctx, batch.updates); err != nil {
		metrics.ProgressWritesTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("user_id", batch.ownerID).
			Int("worker_id", id).
			Msg("progress write failed")
		return
	}
	metrics.ProgressWritesTotal.WithLabelValues("ok").Inc()
}
