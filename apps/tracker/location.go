package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

func (cli *commandLine) locate(timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := cli.capturer.Capture(ctx)
	if err != nil {
		return err
	}
	return cli.print(res)
}

func (cli *commandLine) resolve() error {
	return cli.print(cli.locator.ResolveLocation(context.Background()))
}

func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "printing result")
	}
	return nil
}
