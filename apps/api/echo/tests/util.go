package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-tracking/apps/api/echo"
	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/services/dispatch/dummy"
	"github.com/trezcool/masomo-tracking/services/geolocation"
	"github.com/trezcool/masomo-tracking/tests"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

type testApp struct {
	Server
	dispatcher *dummydispatch.Dispatcher
	tracker    *tracking.Service
	logger     *testutil.Logger
}

// setup wires a server around src. relay may be nil.
func setup(t *testing.T, src geo.Source, relay *geolocsvc.Relay) testApp {
	conf := &core.Config{
		AppName:  "Masomo",
		Build:    "test",
		TestMode: true,
	}
	cache := geo.NewCache(nil)
	chain := geo.NewChain(src, nil, cache, nil)
	dispatcher := dummydispatch.NewDispatcher()
	tracker := tracking.NewService(tracking.Deps{
		Context:    tracking.NewContext(nil, cache),
		Locator:    chain,
		Env:        device.Attributes{Timezone: "Africa/Kinshasa"},
		Dispatcher: dispatcher,
	})

	logger := &testutil.Logger{}
	deps := ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Tracker:        tracker,
		Capturer:       chain,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	}
	if relay != nil {
		deps.Relay = relay
	}
	return testApp{
		Server:     NewServer(deps),
		dispatcher: dispatcher,
		tracker:    tracker,
		logger:     logger,
	}
}

func staticSource(t *testing.T) geo.Source {
	src, err := geolocsvc.NewStatic(-4.3217, 15.3126, 20, nil)
	if err != nil {
		t.Fatalf("staticSource() failed: %v", err)
	}
	return src
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	check    func(t *testing.T, data map[string]interface{})
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept-Language", "fr-CD,fr;q=0.9")
	req.Header.Set("Referer", "https://masomo.test/students")
	rec := httptest.NewRecorder()
	return req, rec
}

func run(t *testing.T, app http.Handler, tt httpTest) {
	req, rec := newRequest(tt.method, tt.path, tt.body)
	app.ServeHTTP(rec, req)

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		checkData(t, rec.Body.Bytes(), tt.wantData)
	}
	if tt.check != nil {
		var data map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
		}
		tt.check(t, data)
	}
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func checkData(t *testing.T, got, want []byte) {
	var j1, j2 interface{}
	if err := json.Unmarshal(got, &j1); err != nil {
		t.Errorf("checkData() failed to decode %s: %v", string(got), err)
		return
	}
	if err := json.Unmarshal(want, &j2); err != nil {
		t.Fatalf("checkData() failed to decode wantData: %v", err)
	}
	if !reflect.DeepEqual(j1, j2) {
		t.Errorf("failed! data = %s; wantData %s", string(got), string(want))
	}
}

// object walks nested JSON objects: object(data, "event", "data").
func object(t *testing.T, data map[string]interface{}, keys ...string) map[string]interface{} {
	cur := data
	for _, k := range keys {
		next, ok := cur[k].(map[string]interface{})
		if !assert.True(t, ok, "%q is not an object in %v", k, cur) {
			return map[string]interface{}{}
		}
		cur = next
	}
	return cur
}

func waitPending(t *testing.T, relay *geolocsvc.Relay, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := relay.Pending(); got == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("waitPending(): still not %d pending requests", n)
}
