package geo_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
)

func TestAddress_FullAddress(t *testing.T) {
	s := core.StringPtr

	tests := []struct {
		name string
		addr geo.Address
		want *string
	}{
		{name: "empty", addr: geo.Address{}},
		{name: "placeholders only", addr: geo.Address{}.WithDefaults()},
		{
			name: "resolved fields in order",
			addr: geo.Address{Village: s("Westlands"), City: s("Nairobi"), Country: s("Kenya"), PostalCode: s("00100")},
			want: s("Westlands, Nairobi, Kenya, 00100"),
		},
		{
			name: "placeholders are skipped",
			addr: geo.Address{City: s("Nairobi"), Country: s("Kenya")}.WithDefaults(),
			want: s("Nairobi, Kenya"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.addr.FullAddress())
		})
	}
}

func TestAddress_WithDefaults(t *testing.T) {
	addr := geo.Address{City: core.StringPtr("Nairobi"), Street: core.StringPtr("  ")}.WithDefaults()

	assert.Equal(t, "Nairobi", *addr.City)
	assert.Equal(t, geo.UnknownStreet, *addr.Street)
	assert.Equal(t, geo.UnknownStreetNumber, *addr.StreetNumber)
	assert.Equal(t, geo.UnknownPostalCode, *addr.PostalCode)
	assert.True(t, geo.IsPlaceholder(*addr.Country))
}

func TestSample_Validate(t *testing.T) {
	f := geo.Float

	tests := []struct {
		name    string
		sample  geo.Sample
		wantErr bool
	}{
		{name: "no coordinates", sample: geo.Sample{}},
		{name: "valid", sample: geo.Sample{Latitude: f(-1.29), Longitude: f(36.82)}},
		{name: "bounds", sample: geo.Sample{Latitude: f(90), Longitude: f(-180)}},
		{name: "latitude only", sample: geo.Sample{Latitude: f(1)}, wantErr: true},
		{name: "longitude only", sample: geo.Sample{Longitude: f(1)}, wantErr: true},
		{name: "latitude out of range", sample: geo.Sample{Latitude: f(90.1), Longitude: f(0)}, wantErr: true},
		{name: "longitude out of range", sample: geo.Sample{Latitude: f(0), Longitude: f(181)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *core.ValidationError
				assert.True(t, errors.As(err, &verr))
			}
		})
	}
}

func TestParseErrorKind(t *testing.T) {
	tests := []struct {
		code   string
		want   geo.ErrorKind
		wantOk bool
	}{
		{code: "1", want: geo.KindPermissionDenied, wantOk: true},
		{code: "2", want: geo.KindPositionUnavailable, wantOk: true},
		{code: "3", want: geo.KindTimeout, wantOk: true},
		{code: "timeout", want: geo.KindTimeout, wantOk: true},
		{code: "unsupported", want: geo.KindUnsupported, wantOk: true},
		{code: "4"},
		{code: ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := geo.ParseErrorKind(tt.code)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_Is(t *testing.T) {
	err := errors.Wrap(geo.NewError(geo.KindTimeout, "gave up after 5s"), "acquiring")

	assert.True(t, errors.Is(err, geo.ErrTimeout))
	assert.False(t, errors.Is(err, geo.ErrPermissionDenied))
	assert.True(t, geo.IsKind(err, geo.KindTimeout))
	assert.False(t, geo.IsKind(errors.New("boom"), geo.KindTimeout))
}
