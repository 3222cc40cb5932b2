package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DropCounter receives a callback for every record dropped on overflow.
// The metrics collector satisfies this.
type DropCounter interface {
	RecordAuditDrop()
}

// Recorder queues audit records and writes them to the store from a single
// background goroutine. Enqueueing never blocks: when the queue is full the
// record is dropped and counted. Losing an audit row is preferable to
// stalling a forward.
type Recorder struct {
	store   *Store
	queue   chan *Record
	drops   DropCounter
	logger  *slog.Logger
	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewRecorder creates a recorder with the given queue length and starts its
// writer goroutine.
func NewRecorder(store *Store, bufferSize int, drops DropCounter) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	r := &Recorder{
		store:   store,
		queue:   make(chan *Record, bufferSize),
		drops:   drops,
		logger:  slog.Default().With("component", "audit.recorder"),
		stopped: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Enqueue submits a record for asynchronous persistence. It never blocks.
// Records enqueued after Close are silently discarded.
func (r *Recorder) Enqueue(rec *Record) {
	select {
	case <-r.stopped:
		return
	case r.queue <- rec:
	default:
		if r.drops != nil {
			r.drops.RecordAuditDrop()
		}
		r.logger.Warn("audit queue full, record dropped", "request_id", rec.RequestID)
	}
}

// run drains the queue until Close, then flushes whatever is left.
func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.queue:
			r.persist(rec)
		case <-r.stopped:
			for {
				select {
				case rec := <-r.queue:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("failed to persist audit record",
			"request_id", rec.RequestID,
			"error", err,
		)
	}
}

// Close stops accepting records, flushes the queue, and waits for the
// writer to finish. The store itself is not closed.
func (r *Recorder) Close() {
	close(r.stopped)
	r.wg.Wait()
}
