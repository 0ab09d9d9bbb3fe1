package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize is the Writer queue capacity used when none is configured.
const DefaultQueueSize = 256

const appendTimeout = 5 * time.Second

// Writer persists records asynchronously through a bounded queue drained by
// one worker goroutine. Submission never blocks the caller and failures are
// logged, never returned. Records are written in submission order.
type Writer struct {
	store  Store
	logger *zap.Logger
	queue  chan Record
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWriter creates a Writer and starts its worker.
//
// Precondition: store and logger must be non-nil; queueSize <= 0 selects
// DefaultQueueSize.
// Postcondition: the worker runs until Close is called and the queue drains.
func NewWriter(store Store, logger *zap.Logger, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	w := &Writer{
		store:  store,
		logger: logger,
		queue:  make(chan Record, queueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit enqueues rec. It reports false when the record was dropped because
// the queue is full or the Writer is closed.
func (w *Writer) Submit(rec Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("history writer closed, dropping record",
			zap.String("record_id", rec.ID.String()),
		)
		return false
	}
	select {
	case w.queue <- rec:
		return true
	default:
		w.logger.Warn("history queue full, dropping record",
			zap.String("record_id", rec.ID.String()),
			zap.String("guild_id", rec.GuildID),
			zap.String("user_id", rec.UserID),
		)
		return false
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end. Calling Close more than once is safe.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the worker has written every queued record.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for rec := range w.queue {
		w.write(rec)
	}
}

func (w *Writer) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	err := w.store.Append(ctx, rec)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicate):
		w.logger.Warn("roll history record already stored, skipping",
			zap.String("record_id", rec.ID.String()),
			zap.String("guild_id", rec.GuildID),
			zap.String("user_id", rec.UserID),
		)
	default:
		w.logger.Error("persisting roll history",
			zap.String("record_id", rec.ID.String()),
			zap.String("guild_id", rec.GuildID),
			zap.String("user_id", rec.UserID),
			zap.Stringer("kind", rec.Outcome.Kind),
			zap.Error(err),
		)
	}
}
