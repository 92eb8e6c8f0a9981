package tracking

import (
	"encoding/json"
	"time"

	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
)

const EventTypeUserAction = "user_action"

// Session groups every tracking record from one application load until reload/close.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
}

// EventData is serialized as a single flat object: {"action": .., "buttonId": .., ...Extra}.
type EventData struct {
	Action   string
	ButtonID *string
	Extra    map[string]interface{}
}

func (d EventData) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(d.Extra)+2)
	for k, v := range d.Extra {
		m[k] = v
	}
	m["action"] = d.Action
	m["buttonId"] = d.ButtonID
	return json.Marshal(m)
}

func (d *EventData) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = EventData{}
	if action, ok := m["action"].(string); ok {
		d.Action = action
	}
	if buttonID, ok := m["buttonId"].(string); ok {
		d.ButtonID = &buttonID
	}
	delete(m, "action")
	delete(m, "buttonId")
	if len(m) > 0 {
		d.Extra = m
	}
	return nil
}

// Event describes one user action. It is built per call and never persisted.
type Event struct {
	Type       string    `json:"type"`
	Data       EventData `json:"data"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Payload is the unit handed to a Dispatcher. Every key is always present
// (Event is null for session initialization records).
type Payload struct {
	Event    *Event             `json:"event"`
	Location geo.LocationResult `json:"location"`
	Device   device.Snapshot    `json:"device"`
	Session  Session            `json:"session"`
}

// IsInitialization reports whether p is a session initialization record.
func (p Payload) IsInitialization() bool {
	return p.Event == nil
}

// Action returns the tracked action, or "session_init" for initialization records.
func (p Payload) Action() string {
	if p.Event == nil {
		return ActionSessionInit
	}
	return p.Event.Data.Action
}
