package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
)

var errInvalidData = errors.New("-data must be a JSON object")

func (cli *commandLine) track(action, buttonID, rawData string, dispatch bool) error {
	var extra map[string]interface{}
	if rawData != "" {
		if err := json.Unmarshal([]byte(rawData), &extra); err != nil {
			return errInvalidData
		}
	}

	ctx := context.Background()
	ev := cli.tracker.TrackEvent(core.CleanString(action, true /* lower */), buttonID, extra)
	if !dispatch {
		return cli.print(cli.tracker.RecordEvent(ctx, ev))
	}

	// a CLI invocation is a whole session: announce it first
	_ = cli.tracker.InitializeSession(ctx)
	return cli.print(cli.tracker.Track(ctx, ev))
}
