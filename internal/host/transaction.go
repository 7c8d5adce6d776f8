package host

import (
	"fmt"
	"strings"

	"github.com/roach88/bimbridge/internal/ir"
)

// Severity classifies a transaction failure message.
type Severity string

const (
	// SeverityWarning messages do not prevent a commit.
	SeverityWarning Severity = "warning"
	// SeverityError messages roll the transaction back at commit unless a
	// preprocessor removes them.
	SeverityError Severity = "error"
)

// Warning is a failure message posted during a transaction.
type Warning struct {
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	ElementIDs []ir.ElementID `json:"elementIds,omitempty"`
}

// FailurePreprocessor inspects the messages of a transaction before it
// commits and returns the ones that remain.
type FailurePreprocessor interface {
	Preprocess(warnings []Warning) []Warning
}

// PreprocessorFunc adapts a function to FailurePreprocessor.
type PreprocessorFunc func([]Warning) []Warning

// Preprocess calls f.
func (f PreprocessorFunc) Preprocess(w []Warning) []Warning { return f(w) }

// TxStatus is the lifecycle state of a transaction.
type TxStatus string

const (
	TxStarted    TxStatus = "started"
	TxCommitted  TxStatus = "committed"
	TxRolledBack TxStatus = "rolled_back"
)

// TxRecord summarizes a finished transaction for observers.
type TxRecord struct {
	Seq        int64
	Name       string
	Status     TxStatus
	Steps      int
	Warnings   []Warning // messages left after preprocessing
	Suppressed int       // messages removed by preprocessors
}

// TxObserver is notified after every commit or rollback.
type TxObserver func(TxRecord)

// Transaction is an atomic unit of document mutation. Every mutation
// registers an undo step; RollBack replays them in reverse.
type Transaction struct {
	doc           *Document
	seq           int64
	name          string
	status        TxStatus
	undo          []func()
	warnings      []Warning
	preprocessors []FailurePreprocessor
	remaining     []Warning
	suppressed    int
}

// CommitError reports a commit that was rolled back because error-severity
// messages remained after preprocessing.
type CommitError struct {
	Name     string
	Messages []string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("transaction %q rolled back: %s", e.Name, strings.Join(e.Messages, "; "))
}

// Begin starts a named transaction. Only one transaction may be open.
func (d *Document) Begin(name string) (*Transaction, error) {
	if d.tx != nil {
		return nil, fmt.Errorf("begin %q: %w", name, ErrTransactionOpen)
	}
	d.txSeq++
	t := &Transaction{
		doc:    d,
		seq:    d.txSeq,
		name:   name,
		status: TxStarted,
	}
	d.tx = t
	return t, nil
}

// Name returns the transaction name.
func (t *Transaction) Name() string { return t.name }

// Status returns the lifecycle state.
func (t *Transaction) Status() TxStatus { return t.status }

// AddPreprocessor installs a failure preprocessor run at commit.
func (t *Transaction) AddPreprocessor(p FailurePreprocessor) {
	t.preprocessors = append(t.preprocessors, p)
}

// Warnings returns the messages left after preprocessing. It is only
// meaningful after Commit.
func (t *Transaction) Warnings() []Warning {
	out := make([]Warning, len(t.remaining))
	copy(out, t.remaining)
	return out
}

// Suppressed returns how many messages preprocessors removed.
func (t *Transaction) Suppressed() int { return t.suppressed }

// Commit runs the preprocessors and makes the mutations permanent. If
// error-severity messages remain, the transaction is rolled back and a
// *CommitError is returned.
func (t *Transaction) Commit() error {
	if t.status != TxStarted {
		return fmt.Errorf("commit %q: transaction is %s", t.name, t.status)
	}

	msgs := t.warnings
	for _, p := range t.preprocessors {
		msgs = p.Preprocess(msgs)
	}
	t.suppressed = len(t.warnings) - len(msgs)
	t.remaining = msgs

	var fatal []string
	for _, w := range msgs {
		if w.Severity == SeverityError {
			fatal = append(fatal, w.Message)
		}
	}
	if len(fatal) > 0 {
		t.rollback()
		return &CommitError{Name: t.name, Messages: fatal}
	}

	t.status = TxCommitted
	t.finish()
	return nil
}

// RollBack undoes every mutation. Rolling back a finished transaction is
// a no-op, so it is safe to defer.
func (t *Transaction) RollBack() {
	if t.status != TxStarted {
		return
	}
	t.rollback()
}

func (t *Transaction) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.status = TxRolledBack
	t.finish()
}

func (t *Transaction) finish() {
	d := t.doc
	d.tx = nil
	if d.observer != nil {
		d.observer(TxRecord{
			Seq:        t.seq,
			Name:       t.name,
			Status:     t.status,
			Steps:      len(t.undo),
			Warnings:   t.Warnings(),
			Suppressed: t.suppressed,
		})
	}
	t.undo = nil
}
