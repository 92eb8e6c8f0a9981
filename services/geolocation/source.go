package geolocsvc

import (
	"github.com/juju/clock"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
)

const (
	DriverRelay       = "relay"
	DriverStatic      = "static"
	DriverUnsupported = "unsupported"
)

// New builds the configured platform source. The returned Relay is nil unless conf.Driver is "relay".
func New(conf core.GeolocationConfig, clk clock.Clock) (geo.Source, *Relay, error) {
	switch conf.Driver {
	case DriverRelay, "":
		relay := NewRelay(clk)
		return relay, relay, nil
	case DriverStatic:
		src, err := NewStatic(conf.Latitude, conf.Longitude, conf.Accuracy, clk)
		if err != nil {
			return nil, nil, errors.Wrap(err, "configuring static geolocation")
		}
		return src, nil, nil
	case DriverUnsupported:
		return Unsupported{}, nil, nil
	}
	return nil, nil, errors.Errorf("unknown geolocation driver %q", conf.Driver)
}
