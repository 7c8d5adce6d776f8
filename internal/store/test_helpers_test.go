package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/bimbridge/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeTestRequest journals a Delete request for ids.
func writeTestRequest(t *testing.T, s *Store, id string, ids ...ir.ElementID) {
	t.Helper()
	err := s.WriteRequest(context.Background(), RequestRecord{
		ID:          id,
		Kind:        ir.ActionDelete,
		TargetIDs:   ids,
		Payload:     &ir.ModifyPayload{},
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("WriteRequest() failed: %v", err)
	}
}

// okResponse builds a response with every id successful.
func okResponse(ids ...ir.ElementID) ir.Response {
	res := ir.NewOperationResult(len(ids))
	res.SuccessfulElements = append(res.SuccessfulElements, ids...)
	return ir.Response{Success: true, Message: "ok", Response: res}
}

// getTableColumns returns the column names of table.
func getTableColumns(t *testing.T, s *Store, table string) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info for %s: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
