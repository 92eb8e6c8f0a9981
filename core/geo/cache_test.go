package geo_test

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/tests"
)

var epoch = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func TestCache_IsFresh(t *testing.T) {
	tests := []struct {
		name    string
		set     bool
		elapsed time.Duration
		want    bool
	}{
		{name: "empty", want: false},
		{name: "just captured", set: true, want: true},
		{name: "almost stale", set: true, elapsed: geo.FreshFor - time.Millisecond, want: true},
		{name: "exactly stale", set: true, elapsed: geo.FreshFor, want: false},
		{name: "stale", set: true, elapsed: 6 * time.Minute, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := testclock.NewClock(epoch)
			cache := geo.NewCache(clk)
			if tt.set {
				cache.Set(testutil.Fix(t, -1.28, 36.82, 20, epoch))
			}
			clk.Advance(tt.elapsed)

			if got := cache.IsFresh(); got != tt.want {
				t.Errorf("IsFresh() = %v; want %v", got, tt.want)
			}
			_, _, ok := cache.Fresh()
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCache_IsFresh_futureSample(t *testing.T) {
	clk := testclock.NewClock(epoch)
	cache := geo.NewCache(clk)
	cache.Set(testutil.Fix(t, -1.28, 36.82, 20, epoch.Add(time.Hour)))

	assert.False(t, cache.IsFresh(), "a sample captured after now is not fresh")
	clk.Advance(30 * time.Minute)
	assert.False(t, cache.IsFresh())
	_, _, ok := cache.Fresh()
	assert.False(t, ok)
}

func TestCache_Set(t *testing.T) {
	clk := testclock.NewClock(epoch)
	cache := geo.NewCache(clk)
	assert.Nil(t, cache.Get())

	first := testutil.Fix(t, -1.28, 36.82, 20, epoch)
	cache.Set(first)
	cache.SetAddress(first.CapturedAt, geo.Address{City: core.StringPtr("Nairobi")}.WithDefaults())
	if addr := cache.Address(); assert.NotNil(t, addr) {
		assert.Equal(t, "Nairobi", *addr.City)
	}

	// most recent wins and the stale address goes with it
	second := testutil.Fix(t, -4.04, 39.67, 35, epoch.Add(time.Minute))
	cache.Set(second)
	assert.Nil(t, cache.Address())
	if got := cache.Get(); assert.NotNil(t, got) {
		assert.Equal(t, -4.04, *got.Latitude)
	}

	// an address resolved for the overwritten sample is dropped
	cache.SetAddress(first.CapturedAt, geo.Address{City: core.StringPtr("Nairobi")})
	assert.Nil(t, cache.Address())

	// mutating the returned copy doesn't touch the slot
	got := cache.Get()
	*got.Latitude = 0
	assert.Equal(t, -4.04, *cache.Get().Latitude)
}
