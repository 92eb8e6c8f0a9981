package main

import (
	"context"
	"log"
	"os"

	"github.com/juju/clock"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/services/dispatch"
	"github.com/trezcool/masomo-tracking/services/geocoder"
	"github.com/trezcool/masomo-tracking/services/geolocation"
	"github.com/trezcool/masomo-tracking/services/logger"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stderr, "TRACKER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// the relay needs a UI shell pushing fixes, which a CLI does not have
	if conf.Geolocation.Driver == geolocsvc.DriverRelay || conf.Geolocation.Driver == "" {
		conf.Geolocation.Driver = geolocsvc.DriverUnsupported
	}
	clk := clock.WallClock
	src, _, err := geolocsvc.New(conf.Geolocation, clk)
	errAndDie(std, err)
	cache := geo.NewCache(clk)
	chain := geo.NewChain(src, geocodersvc.NewBigDataCloud(conf.Geocoder, logger), cache, logger)

	host := device.HostEnvironment{AppName: conf.AppName, Build: conf.Build}
	dispatcher, closeDispatcher, err := dispatchsvc.New(context.Background(), conf, host.Attributes().UserAgent, logger)
	errAndDie(std, err)

	cli := commandLine{
		capturer: chain,
		locator:  chain,
		tracker: tracking.NewService(tracking.Deps{
			Context:    tracking.NewContext(clk, cache),
			Locator:    chain,
			Env:        host,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := closeDispatcher(); cErr != nil {
		std.Printf("closing dispatcher: %v", cErr)
	}
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
