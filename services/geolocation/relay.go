package geolocsvc

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core/geo"
)

type outcome struct {
	sample geo.Sample
	err    error
}

type waiter struct {
	ch           chan outcome
	highAccuracy bool
}

// Relay is a geo.Source fed by the UI shell: the browser runs navigator.geolocation
// and pushes each fix (or error) to the agent. Acquire registers one pending request
// and waits for the next pushed fix, unless a fix younger than Options.MaxAge is already known.
type Relay struct {
	mu          sync.Mutex
	clock       clock.Clock
	latest      *geo.Sample
	denied      bool
	unsupported bool
	waiters     map[*waiter]struct{}
}

var _ geo.Source = (*Relay)(nil)

func NewRelay(clk clock.Clock) *Relay {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Relay{
		clock:   clk,
		waiters: make(map[*waiter]struct{}),
	}
}

func (r *Relay) Acquire(ctx context.Context, opts geo.Options) (geo.Sample, error) {
	r.mu.Lock()
	switch {
	case r.unsupported:
		r.mu.Unlock()
		return geo.Sample{}, geo.ErrUnsupported
	case r.denied:
		r.mu.Unlock()
		return geo.Sample{}, geo.ErrPermissionDenied
	case opts.MaxAge > 0 && r.latest != nil && r.age(r.latest) <= opts.MaxAge:
		s := *r.latest
		r.mu.Unlock()
		return s, nil
	}
	w := &waiter{ch: make(chan outcome, 1), highAccuracy: opts.EnableHighAccuracy}
	r.waiters[w] = struct{}{}
	r.mu.Unlock()

	defer r.forget(w)

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		t := r.clock.NewTimer(opts.Timeout)
		defer t.Stop()
		timeout = t.Chan()
	}

	select {
	case out := <-w.ch:
		return out.sample, out.err
	case <-timeout:
		return geo.Sample{}, geo.ErrTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return geo.Sample{}, geo.ErrTimeout
		}
		return geo.Sample{}, errors.Wrap(ctx.Err(), "waiting for location fix")
	}
}

func (r *Relay) age(s *geo.Sample) time.Duration {
	return r.clock.Now().Sub(s.CapturedAt)
}

func (r *Relay) forget(w *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.waiters, w)
}

// Pending returns the number of outstanding requests and whether any of them wants high accuracy.
// The UI shell polls this to know when to ask the browser for a fix.
func (r *Relay) Pending() (n int, highAccuracy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for w := range r.waiters {
		highAccuracy = highAccuracy || w.highAccuracy
	}
	return len(r.waiters), highAccuracy
}

// Push delivers a fix to every pending request and remembers it for later MaxAge lookups.
func (r *Relay) Push(s geo.Sample) error {
	if !s.HasCoordinates() {
		return geo.NewError(geo.KindPositionUnavailable, "fix without coordinates")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Source == "" {
		s.Source = geo.SourceGPS
	}
	// browser clocks may run ahead of ours; a fix is never newer than its arrival.
	if now := r.clock.Now().UTC(); s.CapturedAt.IsZero() || s.CapturedAt.After(now) {
		s.CapturedAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.latest = &s
	r.denied = false
	r.unsupported = false
	r.broadcast(outcome{sample: s})
	return nil
}

// Fail delivers a platform error to every pending request.
// Denied permission and missing support are sticky until the next successful Push.
func (r *Relay) Fail(gerr *geo.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch gerr.Kind {
	case geo.KindPermissionDenied:
		r.denied = true
	case geo.KindUnsupported:
		r.unsupported = true
	}
	r.broadcast(outcome{err: gerr})
}

func (r *Relay) broadcast(out outcome) {
	for w := range r.waiters {
		select {
		case w.ch <- out:
		default: // already served
		}
	}
}
