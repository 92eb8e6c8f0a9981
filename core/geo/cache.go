package geo

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// FreshFor is how long a cached sample may be served without a new acquisition.
const FreshFor = 5 * time.Minute

// Cache holds the most recent successful sample (single slot, most-recent-wins)
// and the address it was enriched with. Staleness is evaluated at read time.
type Cache struct {
	mu      sync.RWMutex
	clock   clock.Clock
	sample  *Sample
	address *Address
}

func NewCache(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Cache{clock: clk}
}

func (c *Cache) now() time.Time {
	return c.clock.Now()
}

// Get returns the cached sample, fresh or not, or nil.
func (c *Cache) Get() *Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sample == nil {
		return nil
	}
	s := c.sample.Clone()
	return &s
}

// Set replaces the cached sample and forgets the previous address.
func (c *Cache) Set(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s = s.Clone()
	c.sample = &s
	c.address = nil
}

// IsFresh reports whether a sample is cached and younger than FreshFor.
func (c *Cache) IsFresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isFresh()
}

// isFresh treats a sample stamped in the future as stale.
func (c *Cache) isFresh() bool {
	if c.sample == nil {
		return false
	}
	age := c.now().Sub(c.sample.CapturedAt)
	return age >= 0 && age < FreshFor
}

// Fresh returns the cached sample and its address (nil if not enriched yet) when fresh.
func (c *Cache) Fresh() (Sample, *Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isFresh() {
		return Sample{}, nil, false
	}
	var addr *Address
	if c.address != nil {
		a := *c.address
		addr = &a
	}
	return c.sample.Clone(), addr, true
}

// Address returns the address attached to the cached sample, or nil.
func (c *Cache) Address() *Address {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.address == nil {
		return nil
	}
	a := *c.address
	return &a
}

// SetAddress attaches addr to the cached sample captured at capturedAt.
// It is a no-op if the slot has been overwritten since.
func (c *Cache) SetAddress(capturedAt time.Time, addr Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sample == nil || !c.sample.CapturedAt.Equal(capturedAt) {
		return
	}
	c.address = &addr
}
