package host

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// Loop is the host's single mutation goroutine.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - the Document is only touched by tasks, which all run inside Run
//
// Tasks run one at a time in FIFO order. The loop never runs two tasks
// concurrently, so tasks need no locking.
type Loop struct {
	doc     *Document
	queue   *taskQueue
	logger  *slog.Logger
	running atomic.Bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the loop's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// NewLoop creates a loop that owns doc.
func NewLoop(doc *Document, opts ...LoopOption) *Loop {
	l := &Loop{
		doc:    doc,
		queue:  newTaskQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post schedules t on the mutation goroutine.
// Returns false if the loop has been stopped.
func (l *Loop) Post(t Task) bool {
	return l.queue.Enqueue(t)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run executes tasks until ctx is cancelled or Stop is called.
//
// A panicking task is logged and does not stop the loop. Any transaction
// the task left open is rolled back so the next task starts clean.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("host loop is already running")
	}
	defer l.running.Store(false)

	l.logger.Info("host loop starting")

	for {
		task, ok := l.queue.TryDequeue()
		if ok {
			l.runTask(task)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("host loop stopping", "reason", ctx.Err(), "pending", l.queue.Len())
			return ctx.Err()
		case _, open := <-l.queue.Wait():
			if !open && l.queue.Len() == 0 {
				l.logger.Info("host loop stopped")
				return nil
			}
		}
	}
}

// Stop closes the queue. Tasks already queued still run.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("host task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if tx := l.doc.tx; tx != nil {
			l.logger.Warn("host task left a transaction open, rolling back", "transaction", tx.name)
			tx.RollBack()
		}
	}()
	task(l.doc)
}
