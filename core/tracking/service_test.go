package tracking_test

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/services/dispatch/dummy"
	"github.com/trezcool/masomo-tracking/tests"
)

var epoch = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *tracking.Service
	src        *testutil.Source
	dispatcher *dummydispatch.Dispatcher
	logger     *testutil.Logger
	clock      *testclock.Clock
}

func setup(t *testing.T, steps ...testutil.Step) fixture {
	clk := testclock.NewClock(epoch)
	cache := geo.NewCache(clk)
	src := testutil.NewSource(steps...)
	gc := &testutil.Geocoder{Address: geo.Address{City: core.StringPtr("Kinshasa"), Country: core.StringPtr("DR Congo")}}
	logger := &testutil.Logger{}
	dispatcher := dummydispatch.NewDispatcher()

	svc := tracking.NewService(tracking.Deps{
		Context:    tracking.NewContext(clk, cache),
		Locator:    geo.NewChain(src, gc, cache, logger),
		Env:        device.Attributes{UserAgent: "masomo-tracker/test", Language: "fr_CD.UTF-8", Timezone: "Africa/Kinshasa"},
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	return fixture{svc: svc, src: src, dispatcher: dispatcher, logger: logger, clock: clk}
}

func TestService_InitializeSession(t *testing.T) {
	f := setup(t, testutil.Step{Sample: testutil.Fix(t, -4.3217, 15.3126, 30, epoch)})
	ctx := context.Background()

	first := f.svc.InitializeSession(ctx)
	second := f.svc.InitializeSession(ctx)

	if first == nil {
		t.Fatal("InitializeSession() = nil on first call")
	}
	assert.Nil(t, second, "only the first call initializes")
	assert.True(t, first.IsInitialization())
	assert.Nil(t, first.Event)
	assert.NotNil(t, first.Device.Details, "initialization records carry the extended device snapshot")

	sent := f.dispatcher.SentPayloads()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, tracking.ActionSessionInit, sent[0].Action())
	}

	ev := f.svc.RecordEvent(ctx, f.svc.TrackEvent(tracking.ActionPageView, "", nil))
	assert.Equal(t, first.Session, ev.Session)
	assert.Equal(t, first.Session, f.svc.Session())
	assert.Regexp(t, regexp.MustCompile(`^session_\d{13}_[0-9a-f]{9}$`), first.Session.ID)
	assert.Equal(t, epoch, first.Session.StartTime)
}

func TestService_RecordEvent(t *testing.T) {
	f := setup(t, testutil.Step{Sample: testutil.Fix(t, -4.3217, 15.3126, 30, epoch)})
	ctx := context.Background()
	initRec := f.svc.InitializeSession(ctx)

	p := f.svc.RecordEvent(ctx, f.svc.TrackEvent(tracking.ActionButtonClick, "submit", map[string]interface{}{"page": "/grades"}))

	if assert.NotNil(t, p.Event) {
		assert.Equal(t, tracking.EventTypeUserAction, p.Event.Type)
		assert.Equal(t, tracking.ActionButtonClick, p.Event.Data.Action)
		if assert.NotNil(t, p.Event.Data.ButtonID) {
			assert.Equal(t, "submit", *p.Event.Data.ButtonID)
		}
		assert.Equal(t, "/grades", p.Event.Data.Extra["page"])
	}
	assert.Equal(t, initRec.Session.ID, p.Session.ID)
	assert.Equal(t, geo.SourceGPS, p.Location.Source)
	assert.Equal(t, "Kinshasa, DR Congo", *p.Location.FullAddress)
	assert.Equal(t, "fr-CD", *p.Device.Language)
	assert.Nil(t, p.Device.Details)

	// record only: nothing beyond the initialization record was dispatched
	assert.Len(t, f.dispatcher.SentPayloads(), 1)

	var m map[string]interface{}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if err = json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, key := range []string{"event", "location", "device", "session"} {
		assert.Contains(t, m, key)
	}
	evData := m["event"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "button_click", evData["action"])
	assert.Equal(t, "submit", evData["buttonId"])
}

func TestService_RecordEvent_withoutInitialization(t *testing.T) {
	f := setup(t, testutil.Step{Sample: testutil.Fix(t, -4.3217, 15.3126, 30, epoch)})

	p := f.svc.RecordEvent(context.Background(), f.svc.TrackEvent(tracking.ActionPageView, "", nil))

	assert.NotEmpty(t, p.Session.ID)
	assert.Equal(t, f.svc.Session(), p.Session)
	assert.Empty(t, f.dispatcher.SentPayloads())
}

func TestService_RecordEvent_degraded(t *testing.T) {
	f := setup(t, testutil.Step{Err: geo.ErrUnsupported})

	p := f.svc.RecordEvent(context.Background(), f.svc.TrackEvent(tracking.ActionPageView, "", nil))

	assert.Contains(t, []geo.SourceKind{geo.SourceIPFallback, geo.SourceUnknown}, p.Location.Source)
	assert.Nil(t, p.Location.FullAddress)

	data, err := json.Marshal(p.Location.Coordinates)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	assert.JSONEq(t, `{"latitude":null,"longitude":null,"accuracy":null}`, string(data))
}

func TestService_RecordEvent_cancelled(t *testing.T) {
	f := setup(t, testutil.Step{Block: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := f.svc.RecordEvent(ctx, f.svc.TrackEvent(tracking.ActionLogout, "", nil))

	assert.True(t, p.Location.IsDegraded())
	assert.Equal(t, geo.SourceUnknown, p.Location.Source)
	assert.Nil(t, p.Device.UserAgent)
	assert.Equal(t, f.svc.Session(), p.Session)
	assert.NotEmpty(t, f.logger.Entries("warn"))
}

func TestService_Track_dispatchFailure(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		panic bool
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "panicking transport", panic: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, testutil.Step{Err: geo.ErrTimeout})
			f.dispatcher.Err = tt.err
			f.dispatcher.Panic = tt.panic

			assert.NotPanics(t, func() {
				p := f.svc.TrackButtonClick(context.Background(), "save", nil)
				assert.Equal(t, tracking.ActionButtonClick, p.Action())
				_ = f.svc.InitializeSession(context.Background())
			})
			assert.Len(t, f.logger.Entries("warn"), 2)
			assert.Empty(t, f.dispatcher.SentPayloads())
		})
	}
}

func TestService_Track_concurrent(t *testing.T) {
	f := setup(t, testutil.Step{Sample: testutil.Fix(t, -4.3217, 15.3126, 30, epoch)})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.InitializeSession(ctx)
			_ = f.svc.TrackPageView(ctx, "/dashboard", nil)
		}()
	}
	wg.Wait()

	sent := f.dispatcher.SentPayloads()
	assert.Len(t, sent, 21)
	inits := 0
	for _, p := range sent {
		if p.IsInitialization() {
			inits++
		}
		assert.Equal(t, sent[0].Session.ID, p.Session.ID)
	}
	assert.Equal(t, 1, inits)
}

func TestService_hooks(t *testing.T) {
	f := setup(t, testutil.Step{Err: geo.ErrTimeout})
	ctx := context.Background()

	tests := []struct {
		name       string
		track      func() tracking.Payload
		wantAction string
		wantExtra  map[string]interface{}
	}{
		{
			name:       "page view",
			track:      func() tracking.Payload { return f.svc.TrackPageView(ctx, "/students", nil) },
			wantAction: tracking.ActionPageView,
			wantExtra:  map[string]interface{}{"path": "/students"},
		},
		{
			name:       "form submission",
			track:      func() tracking.Payload { return f.svc.TrackFormSubmission(ctx, "enrollment", map[string]interface{}{"fields": 4}) },
			wantAction: tracking.ActionFormSubmission,
			wantExtra:  map[string]interface{}{"form": "enrollment", "fields": 4},
		},
		{
			name:       "login attempt",
			track:      func() tracking.Payload { return f.svc.TrackLoginAttempt(ctx, " Jane.Doe ", " Teacher ", true) },
			wantAction: tracking.ActionLoginAttempt,
			wantExtra:  map[string]interface{}{"username": "jane.doe", "role": "teacher", "success": true},
		},
		{
			name:       "failed login without role",
			track:      func() tracking.Payload { return f.svc.TrackLoginAttempt(ctx, "jane", "", false) },
			wantAction: tracking.ActionLoginAttempt,
			wantExtra:  map[string]interface{}{"username": "jane", "success": false},
		},
		{
			name:       "logout",
			track:      func() tracking.Payload { return f.svc.TrackLogout(ctx, "Jane") },
			wantAction: tracking.ActionLogout,
			wantExtra:  map[string]interface{}{"username": "jane"},
		},
		{
			name:       "data access",
			track:      func() tracking.Payload { return f.svc.TrackDataAccess(ctx, "grades", nil) },
			wantAction: tracking.ActionDataAccess,
			wantExtra:  map[string]interface{}{"resource": "grades"},
		},
		{
			name:       "report generation",
			track:      func() tracking.Payload { return f.svc.TrackReportGeneration(ctx, "attendance", nil) },
			wantAction: tracking.ActionReportGeneration,
			wantExtra:  map[string]interface{}{"reportType": "attendance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.track()
			if assert.NotNil(t, p.Event) {
				assert.Equal(t, tt.wantAction, p.Event.Data.Action)
				assert.Nil(t, p.Event.Data.ButtonID)
				assert.Equal(t, tt.wantExtra, p.Event.Data.Extra)
			}
		})
	}
	assert.Len(t, f.dispatcher.SentPayloads(), len(tests))
}
