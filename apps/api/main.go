package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"

	echoapi "github.com/trezcool/masomo-tracking/apps/api/echo"
	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
	dispatchsvc "github.com/trezcool/masomo-tracking/services/dispatch"
	geocodersvc "github.com/trezcool/masomo-tracking/services/geocoder"
	geolocsvc "github.com/trezcool/masomo-tracking/services/geolocation"
	logsvc "github.com/trezcool/masomo-tracking/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	trackLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "TRACKING : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	trackLogger.Enable(!conf.Debug)

	// set up location services
	clk := clock.WallClock
	src, relay, err := geolocsvc.New(conf.Geolocation, clk)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up geolocation: %v", err), err)
	}
	cache := geo.NewCache(clk)
	chain := geo.NewChain(src, geocodersvc.NewBigDataCloud(conf.Geocoder, trackLogger), cache, trackLogger)

	// set up tracking
	host := device.HostEnvironment{AppName: conf.AppName, Build: conf.Build}
	dispatcher, closeDispatcher, err := dispatchsvc.New(context.Background(), conf, host.Attributes().UserAgent, trackLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dispatcher: %v", err), err)
	}
	defer func() {
		if err = closeDispatcher(); err != nil {
			logger.Error("closing dispatcher", err)
		}
	}()

	tracker := tracking.NewService(tracking.Deps{
		Context:    tracking.NewContext(clk, cache),
		Locator:    chain,
		Env:        host,
		Dispatcher: dispatcher,
		Logger:     trackLogger,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("session", expvar.Func(func() interface{} { return tracker.Session() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	deps := echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Tracker:    tracker,
		Capturer:   chain,
		Validate:   validate,
		Translator: translator,
	}
	if relay != nil {
		deps.Relay = relay
	}
	server := echoapi.NewServer(deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
