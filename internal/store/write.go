package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/bimbridge/internal/ir"
)

// RequestRecord is a submitted request.
type RequestRecord struct {
	ID          string
	Kind        ir.ActionKind
	TargetIDs   []ir.ElementID
	Payload     ir.Payload
	SubmittedAt time.Time
}

// ResultRecord is a response delivered to the caller, or host work that
// finished after the caller stopped waiting (Late).
type ResultRecord struct {
	RequestID string
	Outcome   string
	Response  ir.Response
	Late      bool
	Duration  time.Duration
}

// TransactionRecord is one host transaction opened by a request.
type TransactionRecord struct {
	RequestID  string
	TxSeq      int64
	Name       string
	Status     string
	Steps      int
	Warnings   []string
	Suppressed int
}

// WriteRequest inserts a request record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRequest(ctx context.Context, r RequestRecord) error {
	targets, err := marshalList(r.TargetIDs)
	if err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	payload := "{}"
	if r.Payload != nil {
		if payload, err = marshalJSON(r.Payload); err != nil {
			return fmt.Errorf("write request: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (id, kind, family, target_ids, payload, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		string(r.Kind),
		string(r.Kind.Family()),
		targets,
		payload,
		r.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// WriteResult appends a result row. A request may have two rows: the
// synthesized timeout result and the late host result.
//
// Note: The request referenced by RequestID must exist (foreign key constraint).
func (s *Store) WriteResult(ctx context.Context, r ResultRecord) error {
	response, err := marshalJSON(r.Response)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	res := r.Response.Response

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results
		(request_id, outcome, success, message, processed_count, succeeded, failed, response, late, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RequestID,
		r.Outcome,
		boolToInt(r.Response.Success),
		r.Response.Message,
		res.ProcessedCount,
		len(res.SuccessfulElements),
		len(res.FailedElements),
		response,
		boolToInt(r.Late),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// WriteTransaction appends a transaction row.
func (s *Store) WriteTransaction(ctx context.Context, t TransactionRecord) error {
	warnings, err := marshalList(t.Warnings)
	if err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (request_id, tx_seq, name, status, steps, warnings, suppressed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		t.RequestID,
		t.TxSeq,
		t.Name,
		t.Status,
		t.Steps,
		warnings,
		t.Suppressed,
	)
	if err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	return nil
}
