package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roach88/bimbridge/internal/host"
)

// StartLoop runs a host loop for doc until the test ends.
func StartLoop(t testing.TB, doc *host.Document) *host.Loop {
	t.Helper()
	loop := host.NewLoop(doc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// Poster is the subset of host.Loop the bridge posts to.
type Poster interface {
	Post(t host.Task) bool
}

// DelayedPoster sleeps on the host goroutine before every task, simulating
// a host that is slow to get to the work.
type DelayedPoster struct {
	Next  Poster
	Delay time.Duration
}

// Post schedules t behind the delay.
func (p *DelayedPoster) Post(t host.Task) bool {
	return p.Next.Post(func(d *host.Document) {
		time.Sleep(p.Delay)
		t(d)
	})
}

// GatedPoster holds every task on the host goroutine until Release is
// called. Ran is closed once a gated task has finished.
type GatedPoster struct {
	Next Poster

	gate chan struct{}
	ran  chan struct{}
	once sync.Once
	fin  sync.Once
}

// NewGatedPoster creates a closed gate in front of next.
func NewGatedPoster(next Poster) *GatedPoster {
	return &GatedPoster{
		Next: next,
		gate: make(chan struct{}),
		ran:  make(chan struct{}),
	}
}

// Post schedules t behind the gate.
func (p *GatedPoster) Post(t host.Task) bool {
	return p.Next.Post(func(d *host.Document) {
		<-p.gate
		t(d)
		p.fin.Do(func() { close(p.ran) })
	})
}

// Release opens the gate. It is safe to call more than once.
func (p *GatedPoster) Release() {
	p.once.Do(func() { close(p.gate) })
}

// Ran is closed after the first gated task completes.
func (p *GatedPoster) Ran() <-chan struct{} {
	return p.ran
}

// ClosedPoster rejects every task, like a stopped loop.
type ClosedPoster struct{}

// Post always fails.
func (ClosedPoster) Post(host.Task) bool { return false }
