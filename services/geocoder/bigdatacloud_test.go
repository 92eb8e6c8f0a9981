package geocodersvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/tests"
)

const kinshasaResponse = `{
	"latitude": -4.3217,
	"longitude": 15.3126,
	"countryName": "Democratic Republic of the Congo",
	"principalSubdivision": "Kinshasa",
	"city": "Kinshasa",
	"locality": "Gombe",
	"postcode": "",
	"localityInfo": {"administrative": [{"name": "Lukunga"}, {"name": "Kinshasa"}]}
}`

func TestBigDataCloud_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		delay       time.Duration
		want        geo.Address
		wantWarning bool
	}{
		{
			name:   "resolved",
			status: http.StatusOK,
			body:   kinshasaResponse,
			want: geo.Address{
				Village:  core.StringPtr("Gombe"),
				District: core.StringPtr("Lukunga"),
				City:     core.StringPtr("Kinshasa"),
				State:    core.StringPtr("Kinshasa"),
				Country:  core.StringPtr("Democratic Republic of the Congo"),
			}.WithDefaults(),
		},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: geo.Address{}.WithDefaults(), wantWarning: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, want: geo.Address{}.WithDefaults(), wantWarning: true},
		{name: "malformed body", status: http.StatusOK, body: `{"city":`, want: geo.Address{}.WithDefaults(), wantWarning: true},
		{name: "slow server", status: http.StatusOK, body: kinshasaResponse, delay: 300 * time.Millisecond, want: geo.Address{}.WithDefaults(), wantWarning: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "-4.3217", r.URL.Query().Get("latitude"))
				assert.Equal(t, "15.3126", r.URL.Query().Get("longitude"))
				assert.Equal(t, "fr", r.URL.Query().Get("localityLanguage"))
				time.Sleep(tt.delay)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			logger := &testutil.Logger{}
			gc := NewBigDataCloud(core.GeocoderConfig{URL: srv.URL, Language: "fr", Timeout: 100 * time.Millisecond}, logger)

			got := gc.Resolve(context.Background(), -4.3217, 15.3126)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, geo.UnknownStreet, *got.Street)
			warns := logger.Entries("warn")
			assert.Equal(t, tt.wantWarning, len(warns) == 1)
			if tt.wantWarning {
				gerr, ok := warns[0].Args[0].(*geo.GeocodeError)
				if assert.True(t, ok) {
					_, traced := gerr.Err.(interface{ StackTrace() errors.StackTrace })
					assert.True(t, traced, "lookup errors carry a stack trace for rollbar")
				}
			}
		})
	}
}

func TestBigDataCloud_Resolve_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	gc := NewBigDataCloud(core.GeocoderConfig{URL: srv.URL}, nil)
	got := gc.Resolve(context.Background(), 0, 0)

	assert.Equal(t, geo.Address{}.WithDefaults(), got)
	assert.Nil(t, got.FullAddress())
}
