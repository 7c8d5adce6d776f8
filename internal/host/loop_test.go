package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/ir"
)

func startLoop(t *testing.T, l *Loop) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	t.Cleanup(cancelCtx)
	return cancelCtx, errc
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := NewLoop(testDoc(t))
	_, done := startLoop(t, l)

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		require.True(t, l.Post(func(*Document) { results <- i }))
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-results:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
	}

	l.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Post(func(*Document) {}), "post after stop should fail")
}

func TestLoop_StopDrainsQueuedTasks(t *testing.T) {
	l := NewLoop(testDoc(t))

	ran := 0
	for i := 0; i < 5; i++ {
		l.Post(func(*Document) { ran++ })
	}
	l.Stop()
	assert.Equal(t, 5, l.Pending())

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 5, ran)
	assert.Equal(t, 0, l.Pending())
}

func TestLoop_ContextCancelStops(t *testing.T) {
	l := NewLoop(testDoc(t))
	cancel, done := startLoop(t, l)

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Running())
}

func TestLoop_RunTwice(t *testing.T) {
	l := NewLoop(testDoc(t))
	startLoop(t, l)
	require.Eventually(t, l.Running, time.Second, time.Millisecond)

	err := l.Run(context.Background())
	assert.Error(t, err)
}

func TestLoop_PanicRollsBackOpenTransaction(t *testing.T) {
	d := testDoc(t)
	l := NewLoop(d)

	l.Post(func(d *Document) {
		_, err := d.Begin("doomed")
		if err != nil {
			return
		}
		_ = d.Move(12, ir.XYZ{X: 100})
		panic("boom")
	})

	var afterX float64
	var inTx bool
	l.Post(func(d *Document) {
		desk, _ := d.Element(12)
		afterX = desk.Location.X
		inTx = d.InTransaction()
	})
	l.Stop()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 2.0, afterX, "panicking task's move was undone")
	assert.False(t, inTx)
}
