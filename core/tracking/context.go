package tracking

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/trezcool/masomo-tracking/core/geo"
)

// Context holds the process-wide tracking state: the session identity and the location cache.
// It is created once per application lifetime and injected into the Service;
// the session is started on first use and never torn down.
type Context struct {
	mu          sync.Mutex
	clock       clock.Clock
	cache       *geo.Cache
	session     *Session
	initialized bool
}

func NewContext(clk clock.Clock, cache *geo.Cache) *Context {
	if clk == nil {
		clk = clock.WallClock
	}
	if cache == nil {
		cache = geo.NewCache(clk)
	}
	return &Context{clock: clk, cache: cache}
}

func (c *Context) Cache() *geo.Cache {
	return c.cache
}

func (c *Context) now() time.Time {
	return c.clock.Now().UTC()
}

// Session returns the current session, starting it if needed. The id is stable for the Context's lifetime.
func (c *Context) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		now := c.now()
		c.session = &Session{ID: newSessionID(now), StartTime: now}
	}
	return *c.session
}

// Initialized reports whether the session initialization record has been produced.
func (c *Context) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.initialized
}

// markInitialized flips the initialized flag; only the first caller gets true.
func (c *Context) markInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return false
	}
	c.initialized = true
	return true
}

// newSessionID returns "session_<unix millis>_<9 random chars>".
func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
