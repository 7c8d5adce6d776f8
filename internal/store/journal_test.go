package store

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/bimbridge/internal/ir"
)

func TestWriteRequest_Idempotent(t *testing.T) {
	s := createTestStore(t)

	writeTestRequest(t, s, "req-1", 10, 11)
	writeTestRequest(t, s, "req-1", 10, 11)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM requests").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 request row, got %d", count)
	}

	var family, targets string
	if err := s.db.QueryRow("SELECT family, target_ids FROM requests WHERE id = 'req-1'").Scan(&family, &targets); err != nil {
		t.Fatalf("select: %v", err)
	}
	if family != "modify" {
		t.Errorf("family = %q, want modify", family)
	}
	if targets != "[10,11]" {
		t.Errorf("target_ids = %q, want [10,11]", targets)
	}
}

func TestWriteResult_RequiresRequest(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteResult(context.Background(), ResultRecord{
		RequestID: "missing",
		Outcome:   "success",
		Response:  okResponse(1),
	})
	if err == nil {
		t.Error("expected foreign key violation for unknown request")
	}
}

func TestReadResults_TimeoutThenLate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRequest(t, s, "req-1", 10)

	timedOut := ir.NewOperationResult(1)
	timedOut.FailedElements = append(timedOut.FailedElements, ir.FailureRecord{ElementID: 10, Reason: "operation timed out"})
	if err := s.WriteResult(ctx, ResultRecord{
		RequestID: "req-1",
		Outcome:   "timeout",
		Response:  ir.Response{Message: "timed out", Response: timedOut},
		Duration:  50 * time.Millisecond,
	}); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}
	if err := s.WriteResult(ctx, ResultRecord{
		RequestID: "req-1",
		Outcome:   "success",
		Response:  okResponse(10),
		Late:      true,
		Duration:  120 * time.Millisecond,
	}); err != nil {
		t.Fatalf("WriteResult() late failed: %v", err)
	}

	results, err := s.ReadResults(ctx, "req-1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Late || results[0].Outcome != "timeout" {
		t.Errorf("first result = %+v, want the timeout", results[0])
	}
	if got := results[0].Response.Response.FailedElements[0].Reason; got != "operation timed out" {
		t.Errorf("reason = %q", got)
	}
	if !results[1].Late || results[1].DurationMS != 120 {
		t.Errorf("second result = %+v, want the late completion", results[1])
	}

	history, err := s.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	h := history[0]
	if h.Outcome != "timeout" || h.Success || !h.LateCompleted || h.Failed != 1 {
		t.Errorf("history entry = %+v", h)
	}
}

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		writeTestRequest(t, s, id, 1)
		if err := s.WriteResult(ctx, ResultRecord{RequestID: id, Outcome: "success", Response: okResponse(1)}); err != nil {
			t.Fatalf("WriteResult() failed: %v", err)
		}
	}
	writeTestRequest(t, s, "in-flight", 2)

	history, err := s.History(ctx, 3)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	var ids []string
	for _, h := range history {
		ids = append(ids, h.RequestID)
	}
	want := []string{"in-flight", "c", "b"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
	if history[0].Outcome != "" {
		t.Errorf("in-flight request should have no outcome, got %q", history[0].Outcome)
	}
	if !history[1].Success || history[1].Succeeded != 1 {
		t.Errorf("entry c = %+v", history[1])
	}
}

func TestReadTransactions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRequest(t, s, "req-1", 1)

	records := []TransactionRecord{
		{RequestID: "req-1", TxSeq: 1, Name: "Create room 1", Status: "committed", Steps: 2, Suppressed: 1},
		{RequestID: "req-1", TxSeq: 2, Name: "Create room 2", Status: "rolled_back", Warnings: []string{"Room is not enclosed"}},
	}
	for _, r := range records {
		if err := s.WriteTransaction(ctx, r); err != nil {
			t.Fatalf("WriteTransaction() failed: %v", err)
		}
	}

	got, err := s.ReadTransactions(ctx, "req-1")
	if err != nil {
		t.Fatalf("ReadTransactions() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if got[0].Suppressed != 1 || len(got[0].Warnings) != 0 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Status != "rolled_back" || len(got[1].Warnings) != 1 {
		t.Errorf("second = %+v", got[1])
	}

	none, err := s.ReadTransactions(ctx, "other")
	if err != nil {
		t.Fatalf("ReadTransactions() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}
