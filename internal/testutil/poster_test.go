package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
)

func TestDelayedPoster_RunsAfterDelay(t *testing.T) {
	loop := StartLoop(t, Document(t))
	p := &DelayedPoster{Next: loop, Delay: 30 * time.Millisecond}

	start := time.Now()
	done := make(chan time.Duration, 1)
	require.True(t, p.Post(func(*host.Document) { done <- time.Since(start) }))

	select {
	case elapsed := <-done:
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestGatedPoster_HoldsUntilRelease(t *testing.T) {
	loop := StartLoop(t, Document(t))
	p := NewGatedPoster(loop)

	ran := make(chan struct{})
	require.True(t, p.Post(func(*host.Document) { close(ran) }))

	select {
	case <-ran:
		t.Fatal("task ran before release")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()
	p.Release()
	<-p.Ran()
	<-ran
}

func TestClosedPoster(t *testing.T) {
	assert.False(t, ClosedPoster{}.Post(func(*host.Document) {}))
}

func TestDocument_Fixture(t *testing.T) {
	d := Document(t)

	assert.Len(t, d.Levels(), 2)
	assert.Equal(t, View3DID, d.ActiveView().ID)

	office, ok := d.Element(OfficeRoomID)
	require.True(t, ok)
	assert.True(t, office.Room.Placed())

	_, ok = d.Element(MissingID)
	assert.False(t, ok)
}
