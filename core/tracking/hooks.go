package tracking

import (
	"context"
	"time"

	"github.com/trezcool/masomo-tracking/core"
)

// Tracked actions.
const (
	ActionSessionInit      = "session_init"
	ActionPageView         = "page_view"
	ActionButtonClick      = "button_click"
	ActionFormSubmission   = "form_submission"
	ActionLoginAttempt     = "login_attempt"
	ActionLogout           = "logout"
	ActionDataAccess       = "data_access"
	ActionReportGeneration = "report_generation"
)

// NewEvent builds a user action descriptor. An empty buttonID is recorded as null.
func NewEvent(action, buttonID string, extra map[string]interface{}, capturedAt time.Time) *Event {
	var ext map[string]interface{}
	if len(extra) > 0 {
		ext = make(map[string]interface{}, len(extra))
		for k, v := range extra {
			if k == "action" || k == "buttonId" {
				continue
			}
			ext[k] = v
		}
	}
	return &Event{
		Type: EventTypeUserAction,
		Data: EventData{
			Action:   core.CleanString(action),
			ButtonID: core.StringPtr(buttonID),
			Extra:    ext,
		},
		CapturedAt: capturedAt.UTC(),
	}
}

// NormalizeRole is the single place where role names are normalized before they reach tracking metadata.
func NormalizeRole(role string) string {
	return core.CleanString(role, true /* lower */)
}

func with(extra map[string]interface{}, kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(extra)+len(kvs)/2)
	for k, v := range extra {
		m[k] = v
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			m[k] = kvs[i+1]
		}
	}
	return m
}

func (svc *Service) TrackPageView(ctx context.Context, path string, extra map[string]interface{}) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionPageView, "", with(extra, "path", path)))
}

func (svc *Service) TrackButtonClick(ctx context.Context, buttonID string, extra map[string]interface{}) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionButtonClick, buttonID, extra))
}

func (svc *Service) TrackFormSubmission(ctx context.Context, form string, extra map[string]interface{}) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionFormSubmission, "", with(extra, "form", form)))
}

func (svc *Service) TrackLoginAttempt(ctx context.Context, username, role string, success bool) Payload {
	extra := with(nil, "username", core.CleanString(username, true /* lower */), "success", success)
	if role = NormalizeRole(role); role != "" {
		extra["role"] = role
	}
	return svc.Track(ctx, svc.TrackEvent(ActionLoginAttempt, "", extra))
}

func (svc *Service) TrackLogout(ctx context.Context, username string) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionLogout, "", with(nil, "username", core.CleanString(username, true /* lower */))))
}

func (svc *Service) TrackDataAccess(ctx context.Context, resource string, extra map[string]interface{}) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionDataAccess, "", with(extra, "resource", resource)))
}

func (svc *Service) TrackReportGeneration(ctx context.Context, reportType string, extra map[string]interface{}) Payload {
	return svc.Track(ctx, svc.TrackEvent(ActionReportGeneration, "", with(extra, "reportType", reportType)))
}
