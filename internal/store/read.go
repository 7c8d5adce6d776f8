package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/bimbridge/internal/ir"
)

// HistoryEntry summarizes one request and the result delivered to the
// caller. Late results are reported separately through LateCompleted.
type HistoryEntry struct {
	Seq            int64     `json:"seq"`
	RequestID      string    `json:"requestId"`
	Kind           string    `json:"kind"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Outcome        string    `json:"outcome"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ProcessedCount int       `json:"processedCount"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	DurationMS     int64     `json:"durationMs"`
	LateCompleted  bool      `json:"lateCompleted"`
}

// StoredResult is a result row with its decoded response.
type StoredResult struct {
	Seq        int64
	Outcome    string
	Late       bool
	DurationMS int64
	Response   ir.Response
}

// History returns the most recent requests, newest first. Requests that
// never produced a result (the process stopped mid-flight) are included
// with an empty outcome.
func (s *Store) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.kind, r.submitted_at,
		       COALESCE(res.outcome, ''), COALESCE(res.success, 0), COALESCE(res.message, ''),
		       COALESCE(res.processed_count, 0), COALESCE(res.succeeded, 0), COALESCE(res.failed, 0),
		       COALESCE(res.duration_ms, 0),
		       EXISTS (SELECT 1 FROM results l WHERE l.request_id = r.id AND l.late = 1)
		FROM requests r
		LEFT JOIN results res
		       ON res.seq = (SELECT MIN(seq) FROM results WHERE request_id = r.id AND late = 0)
		ORDER BY r.seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e         HistoryEntry
			submitted string
			success   int
			late      int
		)
		if err := rows.Scan(&e.Seq, &e.RequestID, &e.Kind, &submitted,
			&e.Outcome, &success, &e.Message,
			&e.ProcessedCount, &e.Succeeded, &e.Failed,
			&e.DurationMS, &late); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.SubmittedAt, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		e.Success = success == 1
		e.LateCompleted = late == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// ReadResults returns every result row of a request, ordered by seq.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadResults(ctx context.Context, requestID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, outcome, late, duration_ms, response
		FROM results
		WHERE request_id = ?
		ORDER BY seq ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []StoredResult{}
	for rows.Next() {
		var (
			r        StoredResult
			late     int
			response string
		)
		if err := rows.Scan(&r.Seq, &r.Outcome, &late, &r.DurationMS, &response); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(response), &r.Response); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		r.Late = late == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// ReadTransactions returns the transactions of a request, ordered by seq.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadTransactions(ctx context.Context, requestID string) ([]TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, tx_seq, name, status, steps, warnings, suppressed
		FROM transactions
		WHERE request_id = ?
		ORDER BY seq ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []TransactionRecord{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (TransactionRecord, error) {
	var (
		t        TransactionRecord
		warnings string
	)
	if err := rows.Scan(&t.RequestID, &t.TxSeq, &t.Name, &t.Status, &t.Steps, &warnings, &t.Suppressed); err != nil {
		return TransactionRecord{}, fmt.Errorf("scan transaction: %w", err)
	}
	ws, err := unmarshalStrings(warnings)
	if err != nil {
		return TransactionRecord{}, err
	}
	t.Warnings = ws
	return t, nil
}
