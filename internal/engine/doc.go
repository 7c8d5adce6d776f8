// Package engine turns batch requests into host mutations.
//
// ARCHITECTURE:
//
// Bridge:
// Callers on any goroutine hand a Request to Bridge.Submit. The bridge
// validates it, posts one closure to the host loop and waits on a
// one-shot channel, a timer and the caller's context. Only one request is
// in flight at a time.
//
// Dispatch:
// On the host goroutine the Dispatcher picks the family Handler with an
// exhaustive switch over ir.ActionKind. Handlers run their mutations
// inside ExecContext.Transact, which applies the handler's TxPolicy:
//   - PerBatch: one transaction for the whole batch
//   - PerItem: one transaction per creation item
//   - ReadOnly: no transaction, for status and filter queries
//   - Suppress: duplicate-name and duplicate-number warnings are removed
//     before commit
//
// Results:
// Handlers report every target to an Aggregator. Per-element failures
// never abort the batch; an error returned from Handler.Execute fails
// every target with the same reason.
//
// Timeouts:
// Host work is never cancelled. When the bridge stops waiting it
// synthesizes a timed-out response, and the host's eventual result is
// logged, counted and journaled as a late completion.
package engine
