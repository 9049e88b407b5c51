package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// statusCodes maps business error codes to HTTP status codes.
var statusCodes = map[core.ErrorCode]int{
	core.CodeValidation:         http.StatusBadRequest,
	core.CodeNotEnrolled:        http.StatusForbidden,
	core.CodeInvalidChapterKind: http.StatusBadRequest,
	core.CodeConflict:           http.StatusConflict,
	core.CodeNotComplete:        http.StatusConflict,
	core.CodeNotFound:           http.StatusNotFound,
}

type errorBody struct {
	Error  string            `json:"error"`
	Code   core.ErrorCode    `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body errorBody

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				body.Error = origErr.Message.(string)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				body.Error = msg
			} else {
				body.Error = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			body.Code = core.CodeValidation
			body.Error = origErr.Error()
			if len(origErr.Fields) > 0 {
				body.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					body.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.Error:
			body.Code = origErr.Code
			body.Error = origErr.Error()
			if code = statusCodes[origErr.Code]; code == 0 {
				code = http.StatusInternalServerError
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			body.Error = msg

			var usr user.User
			if u, ok := ctx.Get(contextUserKey).(user.User); ok {
				usr = u
			} else if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Kind = claims.Kind
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			body.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
