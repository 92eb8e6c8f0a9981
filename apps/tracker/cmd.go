package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

var errHelp = errors.New("help provided")

type capturer interface {
	Capture(ctx context.Context) (geo.LocationResult, error)
}

type commandLine struct {
	capturer capturer
	locator  tracking.Locator
	tracker  *tracking.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  locate - capture the current location; fails if it cannot be obtained")
	_, _ = fmt.Fprintln(cli.out, "  resolve - resolve the best available location (never fails)")
	_, _ = fmt.Fprintln(cli.out, "  track -action ACTION [-button BUTTON_ID] [-data JSON] [-no-dispatch] - record a user action")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	locateCmd := cli.newFlagSet("locate")
	locateTimeout := locateCmd.Duration("timeout", 0, "Overall time limit (0: the location request's own timeout).")

	resolveCmd := cli.newFlagSet("resolve")

	trackCmd := cli.newFlagSet("track")
	trackAction := trackCmd.String("action", "", "The action name (snake_case), e.g. page_view.")
	trackButton := trackCmd.String("button", "", "The identifier of the button involved, if any.")
	trackData := trackCmd.String("data", "", "Extra metadata as a JSON object.")
	trackNoDispatch := trackCmd.Bool("no-dispatch", false, "Only assemble the payload; do not send it.")

	switch args[1] {
	case "locate":
		if err := locateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.locate(*locateTimeout)
	case "resolve":
		if err := resolveCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.resolve()
	case "track":
		if err := trackCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if strings.TrimSpace(*trackAction) == "" {
			trackCmd.Usage()
			return errHelp
		}
		return cli.track(*trackAction, *trackButton, *trackData, !*trackNoDispatch)
	default:
		cli.printUsage()
		return errHelp
	}
}
