package dispatchsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

const (
	sinkHTTP      = "http"
	maxErrBodyLen = 512
)

// HTTPDispatcher posts each payload as JSON to the collector endpoint. Any 2xx acknowledges it.
type HTTPDispatcher struct {
	url        string
	token      string
	userAgent  string
	httpClient *http.Client
}

var _ tracking.Dispatcher = (*HTTPDispatcher)(nil)

func NewHTTPDispatcher(conf core.DispatchConfig, userAgent string) *HTTPDispatcher {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDispatcher{
		url:        conf.URL,
		token:      conf.Token,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, p tracking.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return tracking.NewDispatchError(sinkHTTP, 0, errors.Wrap(err, "encoding payload"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return tracking.NewDispatchError(sinkHTTP, 0, errors.Wrap(err, "creating request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return tracking.NewDispatchError(sinkHTTP, 0, errors.Wrap(err, "posting payload"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyLen))
		return tracking.NewDispatchError(sinkHTTP, resp.StatusCode, errors.Errorf("collector rejected payload: %s", string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
