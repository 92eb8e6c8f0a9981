package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

const sessionCtxKey = "tracking.session"

// deviceMiddleware derives the request's device environment from its headers.
// The tracking service falls back to the agent's own environment for whatever is missing.
func deviceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			attrs := device.Attributes{
				UserAgent: req.UserAgent(),
				Language:  req.Header.Get("Accept-Language"),
				Referer:   req.Referer(),
				Platform:  strings.Trim(req.Header.Get("Sec-CH-UA-Platform"), `"`),
			}
			ctx.SetRequest(req.WithContext(device.NewContext(req.Context(), attrs)))
			return next(ctx)
		}
	}
}

// sessionMiddleware exposes the tracking session to the error handler.
func sessionMiddleware(svc *tracking.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctx.Set(sessionCtxKey, svc.Session())
			return next(ctx)
		}
	}
}
