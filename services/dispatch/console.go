package dispatchsvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// ConsoleDispatcher prints payloads instead of sending them. Used in debug mode.
type ConsoleDispatcher struct {
	logger core.Logger
}

var _ tracking.Dispatcher = (*ConsoleDispatcher)(nil)

func NewConsoleDispatcher(logger core.Logger) *ConsoleDispatcher {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &ConsoleDispatcher{logger: logger}
}

func (d *ConsoleDispatcher) Send(_ context.Context, p tracking.Payload) error {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return tracking.NewDispatchError("console", 0, errors.Wrap(err, "encoding payload"))
	}
	d.logger.Debug("tracking payload ["+p.Action()+"]\n"+string(body), p.Session)
	return nil
}
