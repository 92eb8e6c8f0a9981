package dummydispatch

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

// Dispatcher records every payload it is given. Set Err to make Send fail.
type Dispatcher struct {
	mu    sync.Mutex
	sent  []tracking.Payload
	Err   error
	Panic bool
}

var _ tracking.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Send(_ context.Context, p tracking.Payload) error {
	if d.Panic {
		panic("dummy dispatcher panic")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return tracking.NewDispatchError("dummy", 0, d.Err)
	}
	d.sent = append(d.sent, p)
	return nil
}

// SentPayloads returns a copy of the payloads accepted so far.
func (d *Dispatcher) SentPayloads() []tracking.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]tracking.Payload, len(d.sent))
	copy(out, d.sent)
	return out
}
