package geolocsvc

import (
	"context"

	"github.com/juju/clock"

	"github.com/trezcool/masomo-tracking/core/geo"
)

// Static always reports the same position, e.g. for a school's fixed kiosk.
type Static struct {
	clock    clock.Clock
	lat, lon float64
	accuracy *float64
}

var _ geo.Source = (*Static)(nil)

func NewStatic(lat, lon, accuracy float64, clk clock.Clock) (*Static, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	var acc *float64
	if accuracy > 0 {
		acc = geo.Float(accuracy)
	}
	if _, err := geo.NewSample(lat, lon, acc, geo.SourceGPS, clk.Now()); err != nil {
		return nil, err
	}
	return &Static{clock: clk, lat: lat, lon: lon, accuracy: acc}, nil
}

func (s *Static) Acquire(ctx context.Context, _ geo.Options) (geo.Sample, error) {
	if err := ctx.Err(); err != nil {
		return geo.Sample{}, geo.ErrTimeout
	}
	return geo.NewSample(s.lat, s.lon, s.accuracy, geo.SourceGPS, s.clock.Now().UTC())
}

// Unsupported is the source used when the platform has no location API.
type Unsupported struct{}

var _ geo.Source = Unsupported{}

func (Unsupported) Acquire(context.Context, geo.Options) (geo.Sample, error) {
	return geo.Sample{}, geo.ErrUnsupported
}
