package dispatchsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

const (
	DriverHTTP       = "http"
	DriverConsole    = "console"
	DriverClickHouse = "clickhouse"
	DriverDynamoDB   = "dynamodb"
)

// New builds the configured dispatcher. The returned close func releases its connections (it is never nil).
func New(ctx context.Context, conf *core.Config, userAgent string, logger core.Logger) (tracking.Dispatcher, func() error, error) {
	noop := func() error { return nil }

	switch conf.Dispatch.Driver {
	case DriverHTTP, "":
		return NewHTTPDispatcher(conf.Dispatch, userAgent), noop, nil
	case DriverConsole:
		return NewConsoleDispatcher(logger), noop, nil
	case DriverClickHouse:
		d, err := NewClickHouseDispatcher(ctx, conf.ClickHouse, conf.AppName, conf.Build)
		if err != nil {
			return nil, noop, errors.Wrap(err, "configuring clickhouse dispatcher")
		}
		return d, d.Close, nil
	case DriverDynamoDB:
		d, err := NewDynamoDBDispatcher(ctx, conf.DynamoDB)
		if err != nil {
			return nil, noop, errors.Wrap(err, "configuring dynamodb dispatcher")
		}
		return d, noop, nil
	}
	return nil, noop, errors.Errorf("unknown dispatch driver %q", conf.Dispatch.Driver)
}
