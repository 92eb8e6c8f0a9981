package geocodersvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
)

const maxErrBodyLen = 512

type bigDataCloudResponse struct {
	City                 string `json:"city"`
	Locality             string `json:"locality"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
	Postcode             string `json:"postcode"`
	LocalityInfo         struct {
		Administrative []struct {
			Name string `json:"name"`
		} `json:"administrative"`
	} `json:"localityInfo"`
}

func (r bigDataCloudResponse) address() geo.Address {
	addr := geo.Address{
		Village:    core.StringPtr(r.Locality),
		City:       core.StringPtr(r.City),
		State:      core.StringPtr(r.PrincipalSubdivision),
		Country:    core.StringPtr(r.CountryName),
		PostalCode: core.StringPtr(r.Postcode),
	}
	if admin := r.LocalityInfo.Administrative; len(admin) > 0 {
		addr.District = core.StringPtr(admin[0].Name)
	}
	return addr
}

// BigDataCloud reverse geocodes with the BigDataCloud client endpoint (no API key required).
type BigDataCloud struct {
	endpoint   string
	language   string
	httpClient *http.Client
	logger     core.Logger
}

var _ geo.Geocoder = (*BigDataCloud)(nil)

func NewBigDataCloud(conf core.GeocoderConfig, logger core.Logger) *BigDataCloud {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lang := conf.Language
	if lang == "" {
		lang = "en"
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &BigDataCloud{
		endpoint:   conf.URL,
		language:   lang,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Resolve never fails: any lookup error yields an all-placeholder Address.
func (g *BigDataCloud) Resolve(ctx context.Context, lat, lon float64) geo.Address {
	addr, err := g.lookup(ctx, lat, lon)
	if err != nil {
		g.logger.Warn("reverse geocoding failed", &geo.GeocodeError{Lat: lat, Lon: lon, Err: err})
		return geo.Address{}.WithDefaults()
	}
	return addr.WithDefaults()
}

func (g *BigDataCloud) lookup(ctx context.Context, lat, lon float64) (geo.Address, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("localityLanguage", g.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return geo.Address{}, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return geo.Address{}, errors.Wrap(err, "calling reverse geocoding API")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyLen))
		return geo.Address{}, errors.Errorf("reverse geocoding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var data bigDataCloudResponse
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return geo.Address{}, errors.Wrap(err, "decoding reverse geocoding response")
	}
	return data.address(), nil
}
