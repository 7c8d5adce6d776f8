// Package ident allocates collision-free identifiers (room numbers, level
// names) for batched creation.
//
// A Ledger holds a snapshot of the identifiers already present in the
// document plus every identifier assigned during the current batch.
// Comparison is case-insensitive: keys are NFC-normalized and Unicode
// case-folded, so "101a" collides with "101A".
//
// A Ledger is scoped to one request and is not safe for concurrent use.
// It is only touched from the host mutation goroutine.
package ident

import (
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Strategy records which allocation rule produced an identifier.
type Strategy string

const (
	// StrategyUnchanged means the requested identifier was free.
	StrategyUnchanged Strategy = "unchanged"
	// StrategyIncremented means the last digit run was incremented.
	StrategyIncremented Strategy = "incremented"
	// StrategyLettered means a letter A..Z was appended.
	StrategyLettered Strategy = "lettered"
	// StrategyHyphenated means "-k" was appended.
	StrategyHyphenated Strategy = "hyphenated"
	// StrategyRandom means every deterministic rule was exhausted and a
	// random token was appended without re-checking the ledger.
	StrategyRandom Strategy = "random"
	// StrategyNext means no identifier was requested and the next
	// available number was used.
	StrategyNext Strategy = "next"
)

// TokenSource produces the last-resort random suffix.
type TokenSource func() string

// UUIDToken returns the first four characters of a random UUID.
func UUIDToken() string {
	return uuid.NewString()[:4]
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithTokenSource overrides the random suffix source (for tests).
func WithTokenSource(src TokenSource) Option {
	return func(l *Ledger) {
		l.token = src
	}
}

// Ledger is the working set of identifiers for one creation batch.
type Ledger struct {
	keys     map[string]string // folded key -> identifier as stored
	assigned map[string]bool   // folded keys added during this batch
	order    []string          // assigned identifiers in assignment order
	folder   cases.Caser
	token    TokenSource
}

// NewLedger creates a ledger seeded with the document's existing
// identifiers. Blank identifiers are ignored.
func NewLedger(existing []string, opts ...Option) *Ledger {
	l := &Ledger{
		keys:     make(map[string]string, len(existing)),
		assigned: make(map[string]bool),
		folder:   cases.Fold(),
		token:    UUIDToken,
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, s := range existing {
		if s == "" {
			continue
		}
		l.keys[l.key(s)] = s
	}
	return l
}

// key normalizes s for case-insensitive comparison.
func (l *Ledger) key(s string) string {
	return l.folder.String(norm.NFC.String(s))
}

// Contains reports whether s (in any case) is taken.
func (l *Ledger) Contains(s string) bool {
	_, ok := l.keys[l.key(s)]
	return ok
}

// Lookup returns the stored spelling of s, if taken.
func (l *Ledger) Lookup(s string) (string, bool) {
	v, ok := l.keys[l.key(s)]
	return v, ok
}

// Add records s as taken by the current batch. Adding an identifier that
// already exists is a no-op.
func (l *Ledger) Add(s string) {
	k := l.key(s)
	if _, ok := l.keys[k]; ok {
		return
	}
	l.keys[k] = s
	l.assigned[k] = true
	l.order = append(l.order, s)
}

// Release forgets an identifier added during this batch, typically because
// the item that claimed it was rolled back. Pre-existing identifiers are
// never released.
func (l *Ledger) Release(s string) {
	k := l.key(s)
	if !l.assigned[k] {
		return
	}
	delete(l.assigned, k)
	delete(l.keys, k)
	for i, v := range l.order {
		if l.key(v) == k {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Assigned returns the identifiers added during this batch, in order.
func (l *Ledger) Assigned() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of identifiers taken.
func (l *Ledger) Len() int {
	return len(l.keys)
}
