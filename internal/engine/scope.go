package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
)

// Granularity defines how many transactions a batch uses.
type Granularity string

const (
	// PerBatch wraps the whole batch in one transaction. Per-element
	// errors are recorded inside it; an error that escapes to the batch
	// edge rolls everything back.
	PerBatch Granularity = "per_batch"

	// PerItem gives every creation item its own transaction, so a failing
	// item rolls back alone.
	PerItem Granularity = "per_item"

	// ReadOnly opens no transaction. The handler must not mutate the
	// document.
	ReadOnly Granularity = "read_only"
)

// WarningMode defines what happens to host warnings at commit.
type WarningMode string

const (
	// Strict keeps every warning. Warnings are not failures; they are
	// reported in details.warnings.
	Strict WarningMode = "strict"

	// Suppress removes warning-severity messages matching the scope's
	// patterns (duplicate names and numbers) before commit.
	Suppress WarningMode = "suppress"
)

// TxPolicy is the transaction policy a handler declares for an action.
type TxPolicy struct {
	Granularity Granularity
	Warnings    WarningMode
}

func (p TxPolicy) String() string {
	return fmt.Sprintf("%s/%s", p.Granularity, p.Warnings)
}

// DefaultSuppressPatterns are the duplicate-warning substrings removed
// under Suppress.
var DefaultSuppressPatterns = []string{"Number", "number", "duplicate", "Duplicate"}

// SuppressPreprocessor returns a failure preprocessor that deletes
// warning-severity messages containing any of patterns. Error-severity
// messages always survive.
func SuppressPreprocessor(patterns []string) host.FailurePreprocessor {
	return host.PreprocessorFunc(func(ws []host.Warning) []host.Warning {
		keep := ws[:0:0]
		for _, w := range ws {
			if w.Severity == host.SeverityWarning && matchesAny(w.Message, patterns) {
				continue
			}
			keep = append(keep, w)
		}
		return keep
	})
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Transact runs fn in one host transaction governed by policy.
//
// Lifecycle: begin, body, then commit if fn succeeded or roll back if it
// returned an error or panicked. The warnings left after preprocessing are
// returned on commit. A commit the host refuses is rolled back and
// returned as the error.
func (ec *ExecContext) Transact(name string, policy TxPolicy, fn func() error) ([]host.Warning, error) {
	tx, err := ec.Doc.Begin(name)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// RollBack is a no-op once the transaction has committed.
	defer tx.RollBack()

	if policy.Warnings == Suppress {
		tx.AddPreprocessor(SuppressPreprocessor(ec.SuppressPatterns))
	}

	if err := fn(); err != nil {
		tx.RollBack()
		ec.Logger.Debug("transaction rolled back", "transaction", name, "error", err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		ec.Logger.Warn("commit refused", "transaction", name, "error", err)
		return nil, err
	}
	if n := tx.Suppressed(); n > 0 {
		ec.Logger.Debug("suppressed host warnings", "transaction", name, "count", n)
	}
	return tx.Warnings(), nil
}

// warningMessages flattens host warnings for details.warnings.
func warningMessages(ws []host.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Message)
	}
	return out
}
