package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// statusClientClosedRequest is the non-standard code used when the client hangs up first.
const statusClientClosedRequest = 499

var (
	errRelayDisabled = echo.NewHTTPError(http.StatusNotFound, "location relay is not enabled")
	errNoCapturer    = echo.NewHTTPError(http.StatusServiceUnavailable, "location capture is not configured")
)

// geoErrorStatus maps a failed foreground capture to a response code.
var geoErrorStatus = map[geo.ErrorKind]int{
	geo.KindPermissionDenied:    http.StatusForbidden,
	geo.KindUnsupported:         http.StatusUnprocessableEntity,
	geo.KindPositionUnavailable: http.StatusUnprocessableEntity,
	geo.KindTimeout:             http.StatusGatewayTimeout,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *geo.Error:
			code = geoErrorStatus[origErr.Kind]
			if code == 0 {
				code = http.StatusUnprocessableEntity
			}
			message = echo.Map{"error": origErr.Error(), "kind": origErr.Kind}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				if translator != nil {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				} else {
					fldErrs[vErr.Field()] = vErr.Error()
				}
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if sess, ok := ctx.Get(sessionCtxKey).(tracking.Session); ok {
				args = append(args, sess)
			}
			logger.Error(msg, args...)
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError && code != http.StatusGatewayTimeout {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
