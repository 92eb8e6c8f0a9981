package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type locationApi struct {
	capturer Capturer
	relay    FixRelay
	validate *validator.Validate
}

type pendingResponse struct {
	Pending      int  `json:"pending"`
	HighAccuracy bool `json:"highAccuracy"`
}

func registerLocationAPI(g *echo.Group, capturer Capturer, relay FixRelay, validate *validator.Validate) {
	api := locationApi{
		capturer: capturer,
		relay:    relay,
		validate: validate,
	}

	lg := g.Group("/location")
	lg.POST("/capture", api.capture)
	lg.GET("/pending", api.pending)
	lg.POST("/fix", api.fix)
}

// Handlers

func (api *locationApi) capture(ctx echo.Context) error {
	if api.capturer == nil {
		return errNoCapturer
	}
	reqCtx := ctx.Request().Context()
	res, err := api.capturer.Capture(reqCtx)
	if err != nil {
		if reqCtx.Err() != nil { // client went away
			return ctx.NoContent(statusClientClosedRequest)
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *locationApi) pending(ctx echo.Context) error {
	if api.relay == nil {
		return errRelayDisabled
	}
	n, high := api.relay.Pending()
	return ctx.JSON(http.StatusOK, pendingResponse{Pending: n, HighAccuracy: high})
}

func (api *locationApi) fix(ctx echo.Context) error {
	if api.relay == nil {
		return errRelayDisabled
	}

	var data fixRequest
	if err := bind(ctx, api.validate, &data, "fixRequest"); err != nil {
		return err
	}

	if data.Error != nil {
		gerr, err := data.Error.geoError()
		if err != nil {
			return err
		}
		api.relay.Fail(gerr)
		return ctx.NoContent(http.StatusAccepted)
	}

	if err := api.relay.Push(data.sample()); err != nil {
		return errors.Wrap(err, "relaying location fix")
	}
	return ctx.NoContent(http.StatusAccepted)
}
