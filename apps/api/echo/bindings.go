package echoapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
)

type (
	// DeviceBody carries attributes only the UI shell knows (screen, viewport, connectivity...).
	// They take precedence over the request headers.
	DeviceBody struct {
		Device *device.Attributes `json:"device"`
	}

	eventRequest struct {
		Action   string                 `json:"action" validate:"required,snakecase"`
		ButtonID string                 `json:"buttonId"`
		Data     map[string]interface{} `json:"data"`
		Dispatch *bool                  `json:"dispatch"` // defaults to true
		DeviceBody
	}

	pageViewRequest struct {
		Path string                 `json:"path" validate:"required"`
		Data map[string]interface{} `json:"data"`
		DeviceBody
	}

	buttonClickRequest struct {
		ButtonID string                 `json:"buttonId" validate:"required"`
		Data     map[string]interface{} `json:"data"`
		DeviceBody
	}

	formSubmissionRequest struct {
		Form string                 `json:"form" validate:"required"`
		Data map[string]interface{} `json:"data"`
		DeviceBody
	}

	loginAttemptRequest struct {
		Username string `json:"username" validate:"required"`
		Role     string `json:"role"`
		Success  bool   `json:"success"`
		DeviceBody
	}

	logoutRequest struct {
		Username string `json:"username" validate:"required"`
		DeviceBody
	}

	dataAccessRequest struct {
		Resource string                 `json:"resource" validate:"required"`
		Data     map[string]interface{} `json:"data"`
		DeviceBody
	}

	reportGenerationRequest struct {
		ReportType string                 `json:"reportType" validate:"required"`
		Data       map[string]interface{} `json:"data"`
		DeviceBody
	}

	// fixRequest mirrors a browser GeolocationPosition (flattened) or GeolocationPositionError.
	fixRequest struct {
		Latitude  *float64  `json:"latitude"`
		Longitude *float64  `json:"longitude"`
		Accuracy  *float64  `json:"accuracy" validate:"omitempty,gte=0"`
		Altitude  *float64  `json:"altitude"`
		Heading   *float64  `json:"heading" validate:"omitempty,gte=0,lt=360"`
		Speed     *float64  `json:"speed" validate:"omitempty,gte=0"`
		Timestamp int64     `json:"timestamp" validate:"gte=0"` // epoch millis; 0 means now
		Source    string    `json:"source" validate:"omitempty,oneof=gps network"`
		Error     *fixError `json:"error"`
	}

	fixError struct {
		Code    interface{} `json:"code" validate:"required"` // 1|2|3 or a kind name
		Message string      `json:"message"`
	}
)

func (b DeviceBody) context(ctx context.Context) context.Context {
	if b.Device == nil {
		return ctx
	}
	if env, ok := device.FromContext(ctx); ok {
		return device.NewContext(ctx, device.Layered(*b.Device, env))
	}
	return device.NewContext(ctx, *b.Device)
}

func bind(ctx echo.Context, validate *validator.Validate, data interface{}, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to "+name)
	}
	if validate == nil {
		return nil
	}
	return validate.Struct(data)
}

func (r fixRequest) sample() geo.Sample {
	s := geo.Sample{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
		Altitude:  r.Altitude,
		Heading:   r.Heading,
		Speed:     r.Speed,
		Source:    geo.SourceKind(r.Source),
	}
	if r.Timestamp > 0 {
		s.CapturedAt = time.UnixMilli(r.Timestamp).UTC()
	}
	return s
}

func (e fixError) geoError() (*geo.Error, error) {
	kind, ok := geo.ParseErrorKind(fmt.Sprint(e.Code))
	if !ok {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "error.code", Error: "unknown geolocation error code"})
	}
	return geo.NewError(kind, e.Message), nil
}
