package geo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
)

// attempt is the typed outcome of one acquisition strategy.
type attempt struct {
	sample Sample
	err    error
}

func (a attempt) ok() bool { return a.err == nil }

// Chain resolves a location through ordered strategies:
// fresh cache, silent fix, best-effort fix, then a degraded result.
type Chain struct {
	src      Source
	geocoder Geocoder
	cache    *Cache
	logger   core.Logger
}

func NewChain(src Source, geocoder Geocoder, cache *Cache, logger core.Logger) *Chain {
	if cache == nil {
		cache = NewCache(nil)
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Chain{
		src:      src,
		geocoder: geocoder,
		cache:    cache,
		logger:   logger,
	}
}

// Cache exposes the cache consulted by the chain.
func (c *Chain) Cache() *Cache {
	return c.cache
}

func (c *Chain) acquire(ctx context.Context, opts Options) attempt {
	if c.src == nil {
		return attempt{err: ErrUnsupported}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	s, err := c.src.Acquire(ctx, opts)
	if err != nil {
		if _, ok := KindOf(err); !ok && errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		return attempt{err: err}
	}
	if !s.HasCoordinates() {
		return attempt{err: NewError(KindPositionUnavailable, "fix without coordinates")}
	}
	if err = s.Validate(); err != nil {
		return attempt{err: NewError(KindPositionUnavailable, err.Error())}
	}
	if s.Source == "" {
		s.Source = SourceGPS
	}
	return attempt{sample: s}
}

// ResolveLocation always produces a LocationResult; it never fails.
func (c *Chain) ResolveLocation(ctx context.Context) LocationResult {
	if s, addr, ok := c.cache.Fresh(); ok {
		return c.enrich(ctx, s, addr, true)
	}

	first := c.acquire(ctx, BackgroundOptions)
	if first.ok() {
		c.cache.Set(first.sample)
		return c.enrich(ctx, first.sample, nil, true)
	}
	c.logger.Debug("background location attempt failed", first.err)

	second := c.acquire(ctx, RetryOptions)
	if second.ok() {
		s := second.sample
		s.Source = SourceNetwork
		return c.enrich(ctx, s, nil, false)
	}
	c.logger.Debug("best-effort location attempt failed", second.err)

	return c.degrade(first.err, second.err)
}

// Capture is the foreground path used when a location is a hard precondition
// (e.g. report submission). Unlike ResolveLocation, acquisition errors are returned.
func (c *Chain) Capture(ctx context.Context) (LocationResult, error) {
	a := c.acquire(ctx, ForegroundOptions)
	if !a.ok() {
		return LocationResult{}, errors.Wrap(a.err, "capturing location")
	}
	c.cache.Set(a.sample)
	return c.enrich(ctx, a.sample, nil, true), nil
}

func (c *Chain) enrich(ctx context.Context, s Sample, addr *Address, cached bool) LocationResult {
	if addr == nil {
		var resolved Address
		if c.geocoder != nil {
			resolved = c.geocoder.Resolve(ctx, *s.Latitude, *s.Longitude)
		}
		resolved = resolved.WithDefaults()
		if cached {
			c.cache.SetAddress(s.CapturedAt, resolved)
		}
		addr = &resolved
	}
	return newResult(s, *addr)
}

func (c *Chain) degrade(errs ...error) LocationResult {
	src := SourceIPFallback
	for _, err := range errs {
		if IsKind(err, KindUnsupported) {
			src = SourceUnknown
			break
		}
	}
	note := fmt.Sprintf("location unavailable: %v", errs[0])
	if len(errs) > 1 && errs[1] != nil && errs[1].Error() != errs[0].Error() {
		note = fmt.Sprintf("%s; retry: %v", note, errs[1])
	}
	return DegradedResult(src, note, c.cache.now())
}
