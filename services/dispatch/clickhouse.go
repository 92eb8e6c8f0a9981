package dispatchsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

const sinkClickHouse = "clickhouse"

const clickHouseSchema = `
CREATE TABLE IF NOT EXISTS %s (
	session_id      String,
	session_start   DateTime64(3, 'UTC'),
	event_type      LowCardinality(String),
	action          LowCardinality(String),
	captured_at     DateTime64(3, 'UTC'),
	latitude        Nullable(Float64),
	longitude       Nullable(Float64),
	accuracy        Nullable(Float64),
	location_source LowCardinality(String),
	full_address    Nullable(String),
	user_agent      Nullable(String),
	language        Nullable(String),
	timezone        Nullable(String),
	payload         String
) ENGINE = MergeTree()
ORDER BY (session_id, captured_at)`

const clickHouseInsert = `
INSERT INTO %s (
	session_id, session_start, event_type, action, captured_at, latitude, longitude, accuracy,
	location_source, full_address, user_agent, language, timezone, payload
)`

// eventRow is the flattened form of a payload; the full JSON is kept in Payload.
type eventRow struct {
	SessionID      string
	SessionStart   time.Time
	EventType      string
	Action         string
	CapturedAt     time.Time
	Latitude       *float64
	Longitude      *float64
	Accuracy       *float64
	LocationSource string
	FullAddress    *string
	UserAgent      *string
	Language       *string
	Timezone       *string
	Payload        string
}

func newEventRow(p tracking.Payload) (eventRow, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return eventRow{}, errors.Wrap(err, "encoding payload")
	}

	row := eventRow{
		SessionID:      p.Session.ID,
		SessionStart:   p.Session.StartTime,
		Action:         p.Action(),
		CapturedAt:     p.Device.CapturedAt,
		Latitude:       p.Location.Coordinates.Latitude,
		Longitude:      p.Location.Coordinates.Longitude,
		Accuracy:       p.Location.Coordinates.Accuracy,
		LocationSource: string(p.Location.Source),
		FullAddress:    p.Location.FullAddress,
		UserAgent:      p.Device.UserAgent,
		Language:       p.Device.Language,
		Timezone:       p.Device.Timezone,
		Payload:        string(body),
	}
	if p.Event != nil {
		row.EventType = p.Event.Type
		row.CapturedAt = p.Event.CapturedAt
	}
	if row.LocationSource == "" {
		row.LocationSource = string(geo.SourceUnknown)
	}
	return row, nil
}

func (r eventRow) values() []interface{} {
	return []interface{}{
		r.SessionID, r.SessionStart, r.EventType, r.Action, r.CapturedAt, r.Latitude, r.Longitude, r.Accuracy,
		r.LocationSource, r.FullAddress, r.UserAgent, r.Language, r.Timezone, r.Payload,
	}
}

// ClickHouseDispatcher appends payloads to an analytics table.
type ClickHouseDispatcher struct {
	conn  driver.Conn
	table string
}

var _ tracking.Dispatcher = (*ClickHouseDispatcher)(nil)

func NewClickHouseDispatcher(ctx context.Context, conf core.ClickHouseConfig, appName, build string) (*ClickHouseDispatcher, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{conf.Address()},
		Auth: clickhouse.Auth{
			Database: conf.Database,
			Username: conf.Username,
			Password: conf.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: appName + "-tracker", Version: build}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening clickhouse connection")
	}
	if err = conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "pinging clickhouse")
	}

	d := &ClickHouseDispatcher{conn: conn, table: conf.Table}
	if err = d.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *ClickHouseDispatcher) migrate(ctx context.Context) error {
	if err := d.conn.Exec(ctx, fmt.Sprintf(clickHouseSchema, d.table)); err != nil {
		return errors.Wrapf(err, "creating table %s", d.table)
	}
	return nil
}

func (d *ClickHouseDispatcher) Send(ctx context.Context, p tracking.Payload) error {
	row, err := newEventRow(p)
	if err != nil {
		return tracking.NewDispatchError(sinkClickHouse, 0, err)
	}

	batch, err := d.conn.PrepareBatch(ctx, fmt.Sprintf(clickHouseInsert, d.table))
	if err != nil {
		return tracking.NewDispatchError(sinkClickHouse, 0, errors.Wrap(err, "preparing batch"))
	}
	if err = batch.Append(row.values()...); err != nil {
		_ = batch.Abort()
		return tracking.NewDispatchError(sinkClickHouse, 0, errors.Wrap(err, "appending row"))
	}
	if err = batch.Send(); err != nil {
		return tracking.NewDispatchError(sinkClickHouse, 0, errors.Wrap(err, "sending batch"))
	}
	return nil
}

func (d *ClickHouseDispatcher) Close() error {
	return d.conn.Close()
}
