package engine

import (
	"fmt"

	"github.com/roach88/bimbridge/internal/ir"
)

// Aggregator accumulates the outcome of one batch.
//
// Failure wins: an element that fails after succeeding (a duplicate target,
// a later step that errors) moves to the failed partition. Successes and
// failures are deduplicated by element id, so the partitions stay disjoint
// even when targets repeat.
//
// Aggregators are used by exactly one goroutine (the host loop).
type Aggregator struct {
	attempted int
	targets   []ir.ElementID
	items     int

	succeeded []ir.ElementID
	okSet     map[ir.ElementID]bool

	failed    []ir.FailureRecord
	failedSet map[failureKey]bool

	details  map[string]any
	batchErr string
}

// failureKey identifies a failure. Creation items that have no element yet
// are keyed by item index.
type failureKey struct {
	id   ir.ElementID
	item int
}

// NewAggregator creates an aggregator for req. Creation batches count
// items; every other kind counts its targets (or nothing, when the kind
// ignores targets).
func NewAggregator(req *ir.Request) *Aggregator {
	a := &Aggregator{
		attempted: req.Attempted(),
		okSet:     make(map[ir.ElementID]bool),
		failedSet: make(map[failureKey]bool),
		details:   make(map[string]any),
	}
	switch p := req.Payload.(type) {
	case *ir.LevelsPayload:
		a.items = len(p.Levels)
	case *ir.RoomsPayload:
		a.items = len(p.Rooms)
	default:
		if !req.Kind.TargetsIgnored() {
			a.targets = req.TargetIDs
		}
	}
	return a
}

// Expand replaces the target list, for kinds that derive their targets
// from the document when none were given.
func (a *Aggregator) Expand(ids []ir.ElementID) {
	a.targets = ids
	a.attempted = len(ids)
}

// Succeed records id as processed. It is a no-op if id already failed.
func (a *Aggregator) Succeed(id ir.ElementID) {
	if a.okSet[id] || a.failedSet[failureKey{id: id}] {
		return
	}
	a.okSet[id] = true
	a.succeeded = append(a.succeeded, id)
}

// Fail records id as failed with reason, removing any earlier success.
func (a *Aggregator) Fail(id ir.ElementID, reason string) {
	a.record(ir.FailureRecord{ElementID: id, Reason: reason}, failureKey{id: id})
}

// FailErr records id as failed with the reason carried by err.
func (a *Aggregator) FailErr(id ir.ElementID, err error) {
	a.Fail(id, reason(err))
}

// FailItem records a failed creation item. id is the conflicting element,
// if there is one.
func (a *Aggregator) FailItem(item int, id ir.ElementID, reason string) {
	a.record(ir.FailureRecord{ElementID: id, Reason: reason, Item: item}, failureKey{item: item})
}

func (a *Aggregator) record(r ir.FailureRecord, key failureKey) {
	if a.failedSet[key] {
		return
	}
	a.failedSet[key] = true
	a.failed = append(a.failed, r)
	if r.Item == 0 && a.okSet[r.ElementID] {
		delete(a.okSet, r.ElementID)
		a.succeeded = removeID(a.succeeded, r.ElementID)
	}
}

// FailAll fails every target with reason and drops every success. Targets
// that already failed keep their original reason. The batch is reported
// as failed even when it has no targets.
func (a *Aggregator) FailAll(reason string) {
	a.batchErr = reason
	a.succeeded = nil
	clear(a.okSet)
	if a.items > 0 {
		for i := 1; i <= a.items; i++ {
			a.FailItem(i, 0, reason)
		}
		return
	}
	for _, id := range a.targets {
		a.Fail(id, reason)
	}
}

// SetDetail adds a key to the result details.
func (a *Aggregator) SetDetail(key string, value any) {
	a.details[key] = value
}

// Result returns the terminal OperationResult.
func (a *Aggregator) Result() ir.OperationResult {
	res := ir.NewOperationResult(a.attempted)
	res.SuccessfulElements = append(res.SuccessfulElements, a.succeeded...)
	res.FailedElements = append(res.FailedElements, a.failed...)
	for k, v := range a.details {
		res.Details[k] = v
	}
	if a.batchErr != "" {
		res.Details["error"] = a.batchErr
	}
	return res
}

// Response wraps the result in the caller-facing envelope.
func (a *Aggregator) Response() ir.Response {
	res := a.Result()
	return ir.Response{
		Success:  a.batchErr == "" && len(res.FailedElements) == 0,
		Message:  summary(res),
		Response: res,
	}
}

func summary(res ir.OperationResult) string {
	return fmt.Sprintf("Processed %d elements: %d succeeded, %d failed",
		res.ProcessedCount, len(res.SuccessfulElements), len(res.FailedElements))
}

// ValidationResponse reports a batch rejected before any host work.
// Both partitions are empty.
func ValidationResponse(req *ir.Request, err error) ir.Response {
	return ir.Response{
		Success:  false,
		Message:  reason(err),
		Response: ir.NewOperationResult(req.Attempted()),
	}
}

// FailedResponse reports every target of req failed with reason. The
// bridge uses it when host work did not deliver a result.
func FailedResponse(req *ir.Request, reason, message string) ir.Response {
	a := NewAggregator(req)
	a.FailAll(reason)
	res := a.Result()
	return ir.Response{
		Success:  false,
		Message:  message,
		Response: res,
	}
}

func removeID(ids []ir.ElementID, id ir.ElementID) []ir.ElementID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
