package host

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/ir"
)

func TestTransaction_MutationOutsideTransaction(t *testing.T) {
	d := testDoc(t)

	err := d.Move(12, ir.XYZ{X: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTransaction))
}

func TestTransaction_OnlyOneOpen(t *testing.T) {
	d := testDoc(t)

	tx, err := d.Begin("first")
	require.NoError(t, err)
	defer tx.RollBack()

	_, err = d.Begin("second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransactionOpen))
}

func TestTransaction_RollBackRestoresEverything(t *testing.T) {
	d := testDoc(t)
	desk, _ := d.Element(12)
	before := desk.Location

	tx, err := d.Begin("edits")
	require.NoError(t, err)

	require.NoError(t, d.Move(12, ir.XYZ{X: 10}))
	require.NoError(t, d.SetParameterValue(12, desk.LookupParameter("Comments"), "moved"))
	require.NoError(t, d.HideElements(2, []ir.ElementID{12}))
	lvl, err := d.CreateLevel(10)
	require.NoError(t, err)
	deleted, err := d.Delete(11)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ir.ElementID{10, 11}, deleted, "door is hosted by the wall")

	tx.RollBack()
	assert.Equal(t, TxRolledBack, tx.Status())

	desk, _ = d.Element(12)
	assert.Equal(t, before, desk.Location)
	assert.Equal(t, "", desk.LookupParameter("Comments").Value)
	assert.True(t, d.ActiveView().View.Visible(12))
	_, ok := d.Element(lvl.ID)
	assert.False(t, ok, "created level removed")
	_, ok = d.Element(11)
	assert.True(t, ok, "deleted wall restored")
	_, ok = d.Element(10)
	assert.True(t, ok, "hosted door restored")
	assert.False(t, d.InTransaction())
}

func TestTransaction_RollBackAfterCommitIsNoop(t *testing.T) {
	d := testDoc(t)

	tx, err := d.Begin("move")
	require.NoError(t, err)
	require.NoError(t, d.Move(12, ir.XYZ{X: 1}))
	require.NoError(t, tx.Commit())

	tx.RollBack()
	assert.Equal(t, TxCommitted, tx.Status())
	desk, _ := d.Element(12)
	assert.Equal(t, 3.0, desk.Location.X)

	assert.Error(t, tx.Commit(), "double commit is rejected")
}

func TestTransaction_PreprocessorSuppressesWarnings(t *testing.T) {
	d := testDoc(t)

	tx, err := d.Begin("warnings")
	require.NoError(t, err)
	tx.AddPreprocessor(PreprocessorFunc(func(ws []Warning) []Warning {
		var keep []Warning
		for _, w := range ws {
			if !strings.Contains(w.Message, "duplicate") {
				keep = append(keep, w)
			}
		}
		return keep
	}))

	d.Warn(SeverityWarning, "Room Number is a duplicate")
	d.Warn(SeverityWarning, "Room is not enclosed")
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, tx.Suppressed())
	require.Len(t, tx.Warnings(), 1)
	assert.Equal(t, "Room is not enclosed", tx.Warnings()[0].Message)
}

func TestTransaction_ErrorSeverityRollsBack(t *testing.T) {
	d := testDoc(t)

	tx, err := d.Begin("fatal")
	require.NoError(t, err)
	require.NoError(t, d.Move(12, ir.XYZ{X: 1}))
	d.Warn(SeverityError, "elements overlap", 12)

	err = tx.Commit()
	require.Error(t, err)

	var ce *CommitError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"elements overlap"}, ce.Messages)
	assert.Equal(t, TxRolledBack, tx.Status())

	desk, _ := d.Element(12)
	assert.Equal(t, 2.0, desk.Location.X)
}

func TestTransaction_ObserverSeesOutcome(t *testing.T) {
	d := testDoc(t)

	var records []TxRecord
	d.SetObserver(func(r TxRecord) { records = append(records, r) })

	inTx(t, d, func() {
		require.NoError(t, d.Move(12, ir.XYZ{X: 1}))
	})

	tx, err := d.Begin("abandoned")
	require.NoError(t, err)
	tx.RollBack()

	require.Len(t, records, 2)
	assert.Equal(t, TxCommitted, records[0].Status)
	assert.Equal(t, 1, records[0].Steps)
	assert.Equal(t, "abandoned", records[1].Name)
	assert.Equal(t, TxRolledBack, records[1].Status)
	assert.Greater(t, records[1].Seq, records[0].Seq)
}
