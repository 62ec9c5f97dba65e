// Package clock abstracts wall-clock reads so repositories can stamp entities
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. Production code injects Real(); tests
// inject a Fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns a Clock backed by time.Now, normalized to UTC.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

// Fake is a manually advanced clock. It is safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t.UTC()
	f.mu.Unlock()
}
