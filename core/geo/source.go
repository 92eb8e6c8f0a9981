package geo

import (
	"context"
	"time"
)

// Options mirror the platform's PositionOptions.
type Options struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaxAge             time.Duration // oldest platform-cached fix that may be returned; 0 forces a new one
}

var (
	// BackgroundOptions is the first, silent attempt: low accuracy, platform-cached fixes welcome.
	BackgroundOptions = Options{EnableHighAccuracy: false, Timeout: 10 * time.Second, MaxAge: 5 * time.Minute}

	// RetryOptions is the best-effort second attempt.
	RetryOptions = Options{EnableHighAccuracy: false, Timeout: 5 * time.Second, MaxAge: 10 * time.Minute}

	// ForegroundOptions is used when the user explicitly asks for their location.
	ForegroundOptions = Options{EnableHighAccuracy: true, Timeout: 10 * time.Second, MaxAge: 0}
)

// Source wraps the platform location API.
// Acquire issues exactly one underlying request per call and never retries;
// failures are *Error values.
type Source interface {
	Acquire(ctx context.Context, opts Options) (Sample, error)
}

// Geocoder turns a coordinate pair into an Address. It never fails:
// unresolved fields hold placeholders (see Address.WithDefaults).
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) Address
}
