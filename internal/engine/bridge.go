package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/store"
)

// Poster schedules work on the host mutation goroutine. host.Loop is the
// production implementation.
type Poster interface {
	Post(t host.Task) bool
}

// Journal records requests, results and transactions. *store.Store
// implements it.
type Journal interface {
	WriteRequest(ctx context.Context, r store.RequestRecord) error
	WriteResult(ctx context.Context, r store.ResultRecord) error
	WriteTransaction(ctx context.Context, r store.TransactionRecord) error
}

// Timeouts maps action kinds to how long the bridge waits for the host.
type Timeouts struct {
	Default time.Duration
	ByKind  map[ir.ActionKind]time.Duration
}

// DefaultTimeouts returns the built-in table: 10s for element operations,
// 15s for creation.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default: 10 * time.Second,
		ByKind: map[ir.ActionKind]time.Duration{
			ir.ActionCreateLevel: 15 * time.Second,
			ir.ActionCreateRoom:  15 * time.Second,
			ir.ActionTagRooms:    15 * time.Second,
		},
	}
}

// For returns the timeout for kind.
func (t Timeouts) For(kind ir.ActionKind) time.Duration {
	if d, ok := t.ByKind[kind]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTimeouts().Default
}

// Completion states shared by the caller and the host task. Whoever moves
// the state off pending owns the outcome.
const (
	statePending int32 = iota
	stateDelivered
	stateAbandoned
)

// Bridge moves requests from any goroutine onto the host loop and waits
// for the result.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine; calls are serialized so at most
//     one request is in flight
//   - the dispatcher and the document are only touched by posted tasks
//
// Host work is never aborted. When the caller stops waiting, the task
// still runs to completion and its outcome is recorded as late.
type Bridge struct {
	mu sync.Mutex

	loop       Poster
	dispatcher *Dispatcher
	timeouts   Timeouts
	ids        RequestIDGenerator
	journal    Journal
	metrics    *Metrics
	logger     *slog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the bridge's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithJournal records every request in j.
func WithJournal(j Journal) BridgeOption {
	return func(b *Bridge) {
		b.journal = j
	}
}

// WithMetrics sets the collectors the bridge reports to.
func WithMetrics(m *Metrics) BridgeOption {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithIDGenerator sets how requests without an id are named.
func WithIDGenerator(g RequestIDGenerator) BridgeOption {
	return func(b *Bridge) {
		b.ids = g
	}
}

// WithTimeouts replaces the timeout table.
func WithTimeouts(t Timeouts) BridgeOption {
	return func(b *Bridge) {
		b.timeouts = t
	}
}

// NewBridge creates a bridge that posts to loop and executes with d.
func NewBridge(loop Poster, d *Dispatcher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		loop:       loop,
		dispatcher: d,
		timeouts:   DefaultTimeouts(),
		ids:        UUIDv7Generator{},
		metrics:    NewMetrics(nil),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Timeouts returns the bridge's timeout table.
func (b *Bridge) Timeouts() Timeouts {
	return b.timeouts
}

// Submit runs req on the host with the configured timeout for its kind.
func (b *Bridge) Submit(ctx context.Context, req *ir.Request) ir.Response {
	return b.SubmitWithTimeout(ctx, req, b.timeouts.For(req.Kind))
}

// SubmitWithTimeout runs req on the host and waits at most timeout. It
// always returns a terminal response; failures to reach the host are
// reported per target.
func (b *Bridge) SubmitWithTimeout(ctx context.Context, req *ir.Request, timeout time.Duration) ir.Response {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	if req.ID == "" {
		req.ID = b.ids.Generate()
	}
	family := req.Kind.Family()
	logger := b.logger.With("request_id", req.ID, "kind", req.Kind)

	b.journalRequest(req, start)

	if err := b.dispatcher.Validate(req); err != nil {
		logger.Info("request rejected", "error", err)
		resp := ValidationResponse(req, err)
		b.finish(req, OutcomeInvalid, resp, false, time.Since(start))
		return resp
	}

	var state atomic.Int32
	done := make(chan ir.Response, 1)

	task := func(doc *host.Document) {
		doc.SetObserver(b.txObserver(req.ID))
		defer doc.SetObserver(nil)

		resp := b.execute(doc, req, logger)
		if state.CompareAndSwap(statePending, stateDelivered) {
			done <- resp
			return
		}

		elapsed := time.Since(start)
		logger.Warn("host work completed after timeout",
			"elapsed", elapsed,
			"success", resp.Success,
			"failed", len(resp.Response.FailedElements),
		)
		b.metrics.ObserveLate(family)
		b.journalResult(req.ID, outcomeOf(resp), resp, true, elapsed)
	}

	if !b.loop.Post(task) {
		logger.Error("host loop is not accepting work")
		resp := FailedResponse(req, ReasonHostNotRunning, ReasonHostNotRunning)
		b.finish(req, OutcomeUnavailable, resp, false, time.Since(start))
		return resp
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause string
	select {
	case resp := <-done:
		b.finish(req, outcomeOf(resp), resp, false, time.Since(start))
		return resp
	case <-timer.C:
		cause = fmt.Sprintf("after %s", timeout)
	case <-ctx.Done():
		cause = ctx.Err().Error()
	}

	if !state.CompareAndSwap(statePending, stateAbandoned) {
		// The host delivered between the wakeup and the swap.
		resp := <-done
		b.finish(req, outcomeOf(resp), resp, false, time.Since(start))
		return resp
	}

	elapsed := time.Since(start)
	logger.Warn("request timed out", "cause", cause, "elapsed", elapsed)
	resp := FailedResponse(req, ReasonTimedOut, fmt.Sprintf("%s %s", ReasonTimedOut, cause))
	resp.Response.Details["timeoutMs"] = timeout.Milliseconds()
	b.finish(req, OutcomeTimeout, resp, false, elapsed)
	return resp
}

// execute runs the dispatcher, turning a panic into a failed batch.
func (b *Bridge) execute(doc *host.Document, req *ir.Request, logger *slog.Logger) (resp ir.Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("host operation panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			msg := fmt.Sprintf("host operation panicked: %v", r)
			resp = FailedResponse(req, msg, msg)
		}
	}()
	return b.dispatcher.Execute(doc, req)
}

// finish records metrics and the journal row for a delivered response.
func (b *Bridge) finish(req *ir.Request, outcome string, resp ir.Response, late bool, elapsed time.Duration) {
	b.metrics.ObserveRequest(req.Kind.Family(), outcome, len(resp.Response.FailedElements), elapsed)
	b.journalResult(req.ID, outcome, resp, late, elapsed)
}

func (b *Bridge) txObserver(requestID string) host.TxObserver {
	return func(r host.TxRecord) {
		b.metrics.ObserveTransaction(r)
		if b.journal == nil {
			return
		}
		rec := store.TransactionRecord{
			RequestID:  requestID,
			TxSeq:      r.Seq,
			Name:       r.Name,
			Status:     string(r.Status),
			Steps:      r.Steps,
			Warnings:   warningMessages(r.Warnings),
			Suppressed: r.Suppressed,
		}
		if err := b.journal.WriteTransaction(context.Background(), rec); err != nil {
			b.logger.Error("journal transaction failed", "request_id", requestID, "error", err)
		}
	}
}

func (b *Bridge) journalRequest(req *ir.Request, at time.Time) {
	if b.journal == nil {
		return
	}
	rec := store.RequestRecord{
		ID:          req.ID,
		Kind:        req.Kind,
		TargetIDs:   req.TargetIDs,
		Payload:     req.Payload,
		SubmittedAt: at,
	}
	if err := b.journal.WriteRequest(context.Background(), rec); err != nil {
		b.logger.Error("journal request failed", "request_id", req.ID, "error", err)
	}
}

func (b *Bridge) journalResult(id, outcome string, resp ir.Response, late bool, elapsed time.Duration) {
	if b.journal == nil {
		return
	}
	rec := store.ResultRecord{
		RequestID: id,
		Outcome:   outcome,
		Response:  resp,
		Late:      late,
		Duration:  elapsed,
	}
	if err := b.journal.WriteResult(context.Background(), rec); err != nil {
		b.logger.Error("journal result failed", "request_id", id, "error", err)
	}
}
