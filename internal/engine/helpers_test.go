package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/testutil"
)

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newDispatcher returns a dispatcher with a deterministic token source.
func newDispatcher() *Dispatcher {
	return NewDispatcher(
		WithDispatchLogger(discardLogger()),
		WithTokenSource(func() string { return "ZZZZ" }),
	)
}

// dispatch runs req against doc on the calling goroutine.
func dispatch(t *testing.T, doc *host.Document, req *ir.Request) ir.Response {
	t.Helper()
	if req.ID == "" {
		req.ID = "test-request"
	}
	return newDispatcher().Dispatch(doc, req)
}

// newExec builds an ExecContext over the fixture document.
func newExec(t *testing.T) *ExecContext {
	t.Helper()
	doc := testutil.Document(t)
	return &ExecContext{
		Doc:              doc,
		View:             doc.ActiveView(),
		RequestID:        "test-request",
		Logger:           discardLogger(),
		SuppressPatterns: DefaultSuppressPatterns,
	}
}

func ids(v ...ir.ElementID) []ir.ElementID { return v }

func ptr[T any](v T) *T { return &v }

// failedIDs returns the element ids of the failed partition.
func failedIDs(res ir.OperationResult) []ir.ElementID {
	out := make([]ir.ElementID, 0, len(res.FailedElements))
	for _, f := range res.FailedElements {
		out = append(out, f.ElementID)
	}
	return out
}

// reasonFor returns the failure reason recorded for id.
func reasonFor(t *testing.T, res ir.OperationResult, id ir.ElementID) string {
	t.Helper()
	for _, f := range res.FailedElements {
		if f.ElementID == id {
			return f.Reason
		}
	}
	require.Failf(t, "no failure recorded", "element %d", id)
	return ""
}

// requireDisjoint asserts no id is in both partitions.
func requireDisjoint(t *testing.T, res ir.OperationResult) {
	t.Helper()
	ok := make(map[ir.ElementID]bool)
	for _, id := range res.SuccessfulElements {
		ok[id] = true
	}
	for _, f := range res.FailedElements {
		if f.Item == 0 {
			require.False(t, ok[f.ElementID], "element %d is in both partitions", f.ElementID)
		}
	}
}
