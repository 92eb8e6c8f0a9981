package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

type trackingApi struct {
	svc      *tracking.Service
	validate *validator.Validate
}

type sessionResponse struct {
	tracking.Session
	Initialized bool `json:"initialized"`
}

func registerTrackingAPI(g *echo.Group, svc *tracking.Service, validate *validator.Validate) {
	api := trackingApi{
		svc:      svc,
		validate: validate,
	}

	g.GET("/session", api.session)
	g.POST("/session", api.initSession)

	eg := g.Group("/events")
	eg.POST("", api.recordEvent)
	eg.POST("/page-view", api.pageView)
	eg.POST("/button-click", api.buttonClick)
	eg.POST("/form-submission", api.formSubmission)
	eg.POST("/login-attempt", api.loginAttempt)
	eg.POST("/logout", api.logout)
	eg.POST("/data-access", api.dataAccess)
	eg.POST("/report-generation", api.reportGeneration)
}

// Handlers

func (api *trackingApi) session(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, sessionResponse{
		Session:     api.svc.Session(),
		Initialized: api.svc.Initialized(),
	})
}

func (api *trackingApi) initSession(ctx echo.Context) error {
	var data DeviceBody
	if err := bind(ctx, api.validate, &data, "DeviceBody"); err != nil {
		return err
	}

	p := api.svc.InitializeSession(data.context(ctx.Request().Context()))
	if p == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) recordEvent(ctx echo.Context) error {
	var data eventRequest
	if err := bind(ctx, api.validate, &data, "eventRequest"); err != nil {
		return err
	}

	reqCtx := data.context(ctx.Request().Context())
	ev := api.svc.TrackEvent(data.Action, data.ButtonID, data.Data)
	if data.Dispatch != nil && !*data.Dispatch {
		return ctx.JSON(http.StatusOK, api.svc.RecordEvent(reqCtx, ev))
	}
	return ctx.JSON(http.StatusCreated, api.svc.Track(reqCtx, ev))
}

func (api *trackingApi) pageView(ctx echo.Context) error {
	var data pageViewRequest
	if err := bind(ctx, api.validate, &data, "pageViewRequest"); err != nil {
		return err
	}
	p := api.svc.TrackPageView(data.context(ctx.Request().Context()), data.Path, data.Data)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) buttonClick(ctx echo.Context) error {
	var data buttonClickRequest
	if err := bind(ctx, api.validate, &data, "buttonClickRequest"); err != nil {
		return err
	}
	p := api.svc.TrackButtonClick(data.context(ctx.Request().Context()), data.ButtonID, data.Data)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) formSubmission(ctx echo.Context) error {
	var data formSubmissionRequest
	if err := bind(ctx, api.validate, &data, "formSubmissionRequest"); err != nil {
		return err
	}
	p := api.svc.TrackFormSubmission(data.context(ctx.Request().Context()), data.Form, data.Data)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) loginAttempt(ctx echo.Context) error {
	var data loginAttemptRequest
	if err := bind(ctx, api.validate, &data, "loginAttemptRequest"); err != nil {
		return err
	}
	p := api.svc.TrackLoginAttempt(data.context(ctx.Request().Context()), data.Username, data.Role, data.Success)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) logout(ctx echo.Context) error {
	var data logoutRequest
	if err := bind(ctx, api.validate, &data, "logoutRequest"); err != nil {
		return err
	}
	p := api.svc.TrackLogout(data.context(ctx.Request().Context()), data.Username)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) dataAccess(ctx echo.Context) error {
	var data dataAccessRequest
	if err := bind(ctx, api.validate, &data, "dataAccessRequest"); err != nil {
		return err
	}
	p := api.svc.TrackDataAccess(data.context(ctx.Request().Context()), data.Resource, data.Data)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trackingApi) reportGeneration(ctx echo.Context) error {
	var data reportGenerationRequest
	if err := bind(ctx, api.validate, &data, "reportGenerationRequest"); err != nil {
		return err
	}
	p := api.svc.TrackReportGeneration(data.context(ctx.Request().Context()), data.ReportType, data.Data)
	return ctx.JSON(http.StatusCreated, p)
}
