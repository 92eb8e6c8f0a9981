package geo

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindUnsupported         ErrorKind = "unsupported"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindTimeout             ErrorKind = "timeout"
	KindPositionUnavailable ErrorKind = "position_unavailable"
)

// Error is a failed acquisition reported by a Source.
type Error struct {
	Kind ErrorKind
	Msg  string
}

var (
	ErrUnsupported         = &Error{Kind: KindUnsupported, Msg: "geolocation is not supported"}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied, Msg: "location permission denied"}
	ErrTimeout             = &Error{Kind: KindTimeout, Msg: "location request timed out"}
	ErrPositionUnavailable = &Error{Kind: KindPositionUnavailable, Msg: "location information is unavailable"}
)

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches on Kind so that errors.Is(err, ErrTimeout) holds for any timeout Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ParseErrorKind maps the platform's numeric/textual error codes to an ErrorKind.
// Browser codes: 1 PERMISSION_DENIED, 2 POSITION_UNAVAILABLE, 3 TIMEOUT.
func ParseErrorKind(code string) (ErrorKind, bool) {
	switch code {
	case "1", "permission_denied", "PERMISSION_DENIED":
		return KindPermissionDenied, true
	case "2", "position_unavailable", "POSITION_UNAVAILABLE":
		return KindPositionUnavailable, true
	case "3", "timeout", "TIMEOUT":
		return KindTimeout, true
	case "unsupported", "UNSUPPORTED":
		return KindUnsupported, true
	}
	return "", false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is an acquisition failure of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// GeocodeError is a failed reverse geocoding lookup. It never leaves a Geocoder.
type GeocodeError struct {
	Lat, Lon float64
	Err      error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("reverse geocoding (%.6f, %.6f): %v", e.Lat, e.Lon, e.Err)
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}
