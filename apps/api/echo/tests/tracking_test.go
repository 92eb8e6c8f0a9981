package tests

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

func Test_home(t *testing.T) {
	app := setup(t, staticSource(t), nil)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Tracking API!", rec.Body.String())
}

func Test_trackingApi_session(t *testing.T) {
	app := setup(t, staticSource(t), nil)
	sess := app.tracker.Session()

	tests := []httpTest{
		{
			name:     "current session",
			method:   http.MethodGet,
			path:     "/v1/session",
			wantCode: http.StatusOK,
			check: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, sess.ID, data["id"])
				assert.Equal(t, false, data["initialized"])
			},
		},
		{
			name:     "invalid device",
			method:   http.MethodPost,
			path:     "/v1/session",
			body:     []byte(`{"device": {"screenWidth": -1}}`),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, data map[string]interface{}) {
				assert.Contains(t, data, "screenWidth")
			},
		},
		{
			name:     "initialize",
			method:   http.MethodPost,
			path:     "/v1/session",
			body:     []byte(`{"device": {"screenWidth": 1920, "screenHeight": 1080, "online": true}}`),
			wantCode: http.StatusCreated,
			check: func(t *testing.T, data map[string]interface{}) {
				assert.Nil(t, data["event"])
				assert.Equal(t, sess.ID, object(t, data, "session")["id"])

				dev := object(t, data, "device")
				assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", dev["userAgent"])
				assert.Equal(t, "fr-CD", dev["language"])
				assert.Equal(t, "Africa/Kinshasa", dev["timezone"])
				assert.Equal(t, "https://masomo.test/students", dev["referer"])
				details := object(t, data, "device", "details")
				assert.Equal(t, 1920.0, details["screenWidth"])
				assert.Equal(t, true, details["online"])
				assert.Nil(t, details["viewportWidth"])

				loc := object(t, data, "location")
				assert.Equal(t, "gps", loc["source"])
				assert.Equal(t, -4.3217, object(t, loc, "coordinates")["latitude"])
			},
		},
		{
			name:     "already initialized",
			method:   http.MethodPost,
			path:     "/v1/session",
			wantCode: http.StatusNoContent,
		},
		{
			name:     "initialized session",
			method:   http.MethodGet,
			path:     "/v1/session",
			wantCode: http.StatusOK,
			check: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, sess.ID, data["id"])
				assert.Equal(t, true, data["initialized"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, app, tt)
		})
	}

	sent := app.dispatcher.SentPayloads()
	if assert.Len(t, sent, 1) {
		assert.True(t, sent[0].IsInitialization())
	}
}

func Test_trackingApi_recordEvent(t *testing.T) {
	app := setup(t, staticSource(t), nil)
	sessID := app.tracker.Session().ID

	tests := []httpTest{
		{
			name:     "missing action",
			method:   http.MethodPost,
			path:     "/v1/events",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"action": "this field is required"}`),
		},
		{
			name:     "malformed action",
			method:   http.MethodPost,
			path:     "/v1/events",
			body:     []byte(`{"action": "Button Click"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"action": "only lowercase letters, digits and underscores are allowed"}`),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/v1/events",
			body:     []byte(`{"action": `),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "button click",
			method:   http.MethodPost,
			path:     "/v1/events/",
			body:     []byte(`{"action": "button_click", "buttonId": "submit", "data": {"page": "/grades"}}`),
			wantCode: http.StatusCreated,
			check: func(t *testing.T, data map[string]interface{}) {
				ev := object(t, data, "event")
				assert.Equal(t, tracking.EventTypeUserAction, ev["type"])
				evData := object(t, ev, "data")
				assert.Equal(t, "button_click", evData["action"])
				assert.Equal(t, "submit", evData["buttonId"])
				assert.Equal(t, "/grades", evData["page"])
				assert.Equal(t, sessID, object(t, data, "session")["id"])
				assert.Contains(t, data, "location")
				assert.Contains(t, data, "device")
				assert.NotContains(t, object(t, data, "device"), "details")
			},
		},
		{
			name:     "record only",
			method:   http.MethodPost,
			path:     "/v1/events",
			body:     []byte(`{"action": "custom_action", "dispatch": false}`),
			wantCode: http.StatusOK,
			check: func(t *testing.T, data map[string]interface{}) {
				assert.Nil(t, object(t, data, "event", "data")["buttonId"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, app, tt)
		})
	}
	assert.Len(t, app.dispatcher.SentPayloads(), 1)
}

func Test_trackingApi_hooks(t *testing.T) {
	app := setup(t, staticSource(t), nil)

	tests := []struct {
		httpTest
		wantAction string
		wantExtra  map[string]interface{}
	}{
		{
			httpTest:   httpTest{name: "page view", path: "/v1/events/page-view", body: []byte(`{"path": "/students"}`)},
			wantAction: tracking.ActionPageView,
			wantExtra:  map[string]interface{}{"path": "/students"},
		},
		{
			httpTest:   httpTest{name: "button click", path: "/v1/events/button-click", body: []byte(`{"buttonId": "save", "data": {"form": "grades"}}`)},
			wantAction: tracking.ActionButtonClick,
			wantExtra:  map[string]interface{}{"buttonId": "save", "form": "grades"},
		},
		{
			httpTest:   httpTest{name: "form submission", path: "/v1/events/form-submission", body: []byte(`{"form": "enrollment"}`)},
			wantAction: tracking.ActionFormSubmission,
			wantExtra:  map[string]interface{}{"form": "enrollment"},
		},
		{
			httpTest:   httpTest{name: "login attempt", path: "/v1/events/login-attempt", body: []byte(`{"username": "Jane", "role": " Admin", "success": true}`)},
			wantAction: tracking.ActionLoginAttempt,
			wantExtra:  map[string]interface{}{"username": "jane", "role": "admin", "success": true},
		},
		{
			httpTest:   httpTest{name: "logout", path: "/v1/events/logout", body: []byte(`{"username": "jane"}`)},
			wantAction: tracking.ActionLogout,
			wantExtra:  map[string]interface{}{"username": "jane"},
		},
		{
			httpTest:   httpTest{name: "data access", path: "/v1/events/data-access", body: []byte(`{"resource": "grades"}`)},
			wantAction: tracking.ActionDataAccess,
			wantExtra:  map[string]interface{}{"resource": "grades"},
		},
		{
			httpTest:   httpTest{name: "report generation", path: "/v1/events/report-generation", body: []byte(`{"reportType": "attendance"}`)},
			wantAction: tracking.ActionReportGeneration,
			wantExtra:  map[string]interface{}{"reportType": "attendance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.wantCode = http.StatusCreated
			tt.check = func(t *testing.T, data map[string]interface{}) {
				evData := object(t, data, "event", "data")
				assert.Equal(t, tt.wantAction, evData["action"])
				for k, v := range tt.wantExtra {
					assert.Equal(t, v, evData[k], k)
				}
			}
			run(t, app, tt.httpTest)
		})
	}

	t.Run("missing required field", func(t *testing.T) {
		run(t, app, httpTest{
			method:   http.MethodPost,
			path:     "/v1/events/report-generation",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"reportType": "this field is required"}`),
		})
	})
	assert.Len(t, app.dispatcher.SentPayloads(), len(tests))
}

func Test_trackingApi_dispatchFailure(t *testing.T) {
	app := setup(t, staticSource(t), nil)
	app.dispatcher.Err = errors.New("collector unreachable")

	run(t, app, httpTest{
		method:   http.MethodPost,
		path:     "/v1/events/logout",
		body:     []byte(`{"username": "jane"}`),
		wantCode: http.StatusCreated,
		check: func(t *testing.T, data map[string]interface{}) {
			assert.Equal(t, "logout", object(t, data, "event", "data")["action"])
		},
	})
	assert.Empty(t, app.dispatcher.SentPayloads())
}
