package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/testutil"
)

func TestTxPolicy_String(t *testing.T) {
	assert.Equal(t, "per_batch/strict", TxPolicy{Granularity: PerBatch, Warnings: Strict}.String())
	assert.Equal(t, "per_item/suppress", TxPolicy{Granularity: PerItem, Warnings: Suppress}.String())
}

func TestSuppressPreprocessor(t *testing.T) {
	p := SuppressPreprocessor(DefaultSuppressPatterns)

	in := []host.Warning{
		{Severity: host.SeverityWarning, Message: `Room Number "1" is a duplicate`},
		{Severity: host.SeverityWarning, Message: "Duplicate level name"},
		{Severity: host.SeverityWarning, Message: "Room is not in a properly enclosed region"},
		{Severity: host.SeverityError, Message: "Duplicate mark value"},
	}
	out := p.Preprocess(in)

	require.Len(t, out, 2)
	assert.Equal(t, "Room is not in a properly enclosed region", out[0].Message)
	assert.Equal(t, host.SeverityError, out[1].Severity, "errors always survive")
	assert.Len(t, in, 4, "input is not modified")
}

func TestSuppressPreprocessor_EmptyPatternMatchesNothing(t *testing.T) {
	p := SuppressPreprocessor([]string{""})
	out := p.Preprocess([]host.Warning{{Severity: host.SeverityWarning, Message: "anything"}})
	assert.Len(t, out, 1)
}

func width(t *testing.T, ec *ExecContext) float64 {
	t.Helper()
	desk, ok := ec.Doc.Element(testutil.DeskID)
	require.True(t, ok)
	return desk.LookupParameter("Width").Value.(float64)
}

func setWidth(ec *ExecContext, v float64) error {
	desk, _ := ec.Doc.Element(testutil.DeskID)
	return ec.Doc.SetParameterValue(desk.ID, desk.LookupParameter("Width"), v)
}

func TestTransact_CommitsAndReturnsWarnings(t *testing.T) {
	ec := newExec(t)

	ws, err := ec.Transact("strict", TxPolicy{Granularity: PerBatch, Warnings: Strict}, func() error {
		ec.Doc.Warn(host.SeverityWarning, "Duplicate mark value", testutil.DeskID)
		return setWidth(ec, 9)
	})

	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Duplicate mark value", ws[0].Message)
	assert.Equal(t, 9.0, width(t, ec))
	assert.False(t, ec.Doc.InTransaction())
}

func TestTransact_SuppressRemovesDuplicateWarnings(t *testing.T) {
	ec := newExec(t)

	var records []host.TxRecord
	ec.Doc.SetObserver(func(r host.TxRecord) { records = append(records, r) })

	ws, err := ec.Transact("suppress", TxPolicy{Granularity: PerItem, Warnings: Suppress}, func() error {
		ec.Doc.Warn(host.SeverityWarning, "Duplicate mark value", testutil.DeskID)
		ec.Doc.Warn(host.SeverityWarning, "Elements overlap", testutil.DeskID)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Elements overlap", ws[0].Message)

	require.Len(t, records, 1)
	assert.Equal(t, host.TxCommitted, records[0].Status)
	assert.Equal(t, 1, records[0].Suppressed)
}

func TestTransact_BodyErrorRollsBack(t *testing.T) {
	ec := newExec(t)
	boom := errors.New("boom")

	ws, err := ec.Transact("fails", TxPolicy{Granularity: PerBatch, Warnings: Strict}, func() error {
		require.NoError(t, setWidth(ec, 9))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, ws)
	assert.Equal(t, 4.0, width(t, ec))
	assert.False(t, ec.Doc.InTransaction())
}

func TestTransact_ErrorSeverityRefusesCommit(t *testing.T) {
	ec := newExec(t)

	_, err := ec.Transact("refused", TxPolicy{Granularity: PerBatch, Warnings: Suppress}, func() error {
		require.NoError(t, setWidth(ec, 9))
		ec.Doc.Warn(host.SeverityError, "Duplicate instances in the same place")
		return nil
	})

	var ce *host.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"Duplicate instances in the same place"}, ce.Messages)
	assert.Equal(t, 4.0, width(t, ec))
}

func TestTransact_PanicRollsBack(t *testing.T) {
	ec := newExec(t)

	assert.Panics(t, func() {
		_, _ = ec.Transact("panics", TxPolicy{Granularity: PerBatch, Warnings: Strict}, func() error {
			_ = setWidth(ec, 9)
			panic("host exploded")
		})
	})

	assert.Equal(t, 4.0, width(t, ec))
	assert.False(t, ec.Doc.InTransaction())
}

func TestTransact_NestedBeginFails(t *testing.T) {
	ec := newExec(t)

	_, err := ec.Transact("outer", TxPolicy{Granularity: PerBatch, Warnings: Strict}, func() error {
		_, err := ec.Transact("inner", TxPolicy{Granularity: PerBatch, Warnings: Strict}, func() error {
			return nil
		})
		return err
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, host.ErrTransactionOpen)
}
