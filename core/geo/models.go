package geo

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
)

// SourceKind tells downstream consumers how much to trust a location.
type SourceKind string

const (
	SourceGPS        SourceKind = "gps"
	SourceNetwork    SourceKind = "network"
	SourceIPFallback SourceKind = "ip_fallback"
	SourceUnknown    SourceKind = "unknown"
)

// Placeholders used when reverse geocoding cannot resolve a field.
const (
	UnknownStreetNumber = "Unknown Street Number"
	UnknownStreet       = "Unknown Street"
	UnknownVillage      = "Unknown Village"
	UnknownDistrict     = "Unknown District"
	UnknownCity         = "Unknown City"
	UnknownState        = "Unknown State"
	UnknownCountry      = "Unknown Country"
	UnknownPostalCode   = "Unknown Postal Code"
)

var placeholders = map[string]bool{
	UnknownStreetNumber: true,
	UnknownStreet:       true,
	UnknownVillage:      true,
	UnknownDistrict:     true,
	UnknownCity:         true,
	UnknownState:        true,
	UnknownCountry:      true,
	UnknownPostalCode:   true,
}

var errInvalidCoordinates = errors.New("invalid coordinates")

// IsPlaceholder reports whether s is one of the "Unknown ..." address placeholders.
func IsPlaceholder(s string) bool {
	return placeholders[s]
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Sample is a single raw fix (or a degraded, coordinate-less reading).
// Latitude and Longitude are either both set or both nil.
type Sample struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Accuracy   *float64   `json:"accuracy"`
	Altitude   *float64   `json:"altitude"`
	Heading    *float64   `json:"heading"`
	Speed      *float64   `json:"speed"`
	CapturedAt time.Time  `json:"capturedAt"`
	Source     SourceKind `json:"source"`
}

// NewSample builds a Sample from a WGS84 coordinate pair.
func NewSample(lat, lon float64, accuracy *float64, src SourceKind, capturedAt time.Time) (Sample, error) {
	s := Sample{
		Latitude:   Float(lat),
		Longitude:  Float(lon),
		Accuracy:   accuracy,
		CapturedAt: capturedAt,
		Source:     src,
	}
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

func clonePtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return Float(*f)
}

// Clone returns a copy of s that shares no pointers with it.
func (s Sample) Clone() Sample {
	s.Latitude = clonePtr(s.Latitude)
	s.Longitude = clonePtr(s.Longitude)
	s.Accuracy = clonePtr(s.Accuracy)
	s.Altitude = clonePtr(s.Altitude)
	s.Heading = clonePtr(s.Heading)
	s.Speed = clonePtr(s.Speed)
	return s
}

// HasCoordinates reports whether s carries a real coordinate pair.
func (s Sample) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Validate enforces the both-or-neither rule and WGS84 ranges.
func (s Sample) Validate() error {
	var flds []core.FieldError
	switch {
	case s.Latitude == nil && s.Longitude == nil:
		return nil
	case s.Latitude == nil:
		flds = append(flds, core.FieldError{Field: "latitude", Error: "latitude is required with longitude"})
	case s.Longitude == nil:
		flds = append(flds, core.FieldError{Field: "longitude", Error: "longitude is required with latitude"})
	default:
		if *s.Latitude < -90 || *s.Latitude > 90 {
			flds = append(flds, core.FieldError{Field: "latitude", Error: "latitude must be between -90 and 90"})
		}
		if *s.Longitude < -180 || *s.Longitude > 180 {
			flds = append(flds, core.FieldError{Field: "longitude", Error: "longitude must be between -180 and 180"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errInvalidCoordinates, flds...)
	}
	return nil
}

// Address is a reverse geocoded address. Every field is independently nullable.
type Address struct {
	StreetNumber *string `json:"streetNumber"`
	Street       *string `json:"street"`
	Village      *string `json:"village"`
	District     *string `json:"district"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	Country      *string `json:"country"`
	PostalCode   *string `json:"postalCode"`
}

func orPlaceholder(s *string, placeholder string) *string {
	if s == nil || core.CleanString(*s) == "" {
		return &placeholder
	}
	return s
}

// WithDefaults returns a copy of a where every unresolved field holds its placeholder.
func (a Address) WithDefaults() Address {
	return Address{
		StreetNumber: orPlaceholder(a.StreetNumber, UnknownStreetNumber),
		Street:       orPlaceholder(a.Street, UnknownStreet),
		Village:      orPlaceholder(a.Village, UnknownVillage),
		District:     orPlaceholder(a.District, UnknownDistrict),
		City:         orPlaceholder(a.City, UnknownCity),
		State:        orPlaceholder(a.State, UnknownState),
		Country:      orPlaceholder(a.Country, UnknownCountry),
		PostalCode:   orPlaceholder(a.PostalCode, UnknownPostalCode),
	}
}

func (a Address) fields() []*string {
	return []*string{a.StreetNumber, a.Street, a.Village, a.District, a.City, a.State, a.Country, a.PostalCode}
}

// FullAddress joins the resolved fields with ", ". Placeholders don't count as resolved.
// Returns nil when nothing was resolved.
func (a Address) FullAddress() *string {
	parts := make([]string, 0, 8)
	for _, f := range a.fields() {
		if f == nil {
			continue
		}
		v := core.CleanString(*f)
		if v == "" || IsPlaceholder(v) {
			continue
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return nil
	}
	full := strings.Join(parts, ", ")
	return &full
}

// Coordinates is the subset of a Sample exposed in a LocationResult.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// LocationResult is what the tracking pipeline attaches to every payload.
type LocationResult struct {
	Coordinates Coordinates `json:"coordinates"`
	Address     Address     `json:"address"`
	FullAddress *string     `json:"fullAddress"`
	Source      SourceKind  `json:"source"`
	CapturedAt  time.Time   `json:"capturedAt"`
	Note        string      `json:"note,omitempty"` // diagnostics only
}

// IsDegraded reports whether r carries no real coordinates.
func (r LocationResult) IsDegraded() bool {
	return r.Coordinates.Latitude == nil || r.Coordinates.Longitude == nil
}

func newResult(s Sample, addr Address) LocationResult {
	return LocationResult{
		Coordinates: Coordinates{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  s.Accuracy,
			Altitude:  s.Altitude,
			Heading:   s.Heading,
			Speed:     s.Speed,
		},
		Address:     addr,
		FullAddress: addr.FullAddress(),
		Source:      s.Source,
		CapturedAt:  s.CapturedAt,
	}
}

// DegradedResult is the coordinate-less result used when no fix could be obtained.
func DegradedResult(src SourceKind, note string, capturedAt time.Time) LocationResult {
	if src == "" {
		src = SourceUnknown
	}
	return LocationResult{
		Source:     src,
		CapturedAt: capturedAt,
		Note:       note,
	}
}
