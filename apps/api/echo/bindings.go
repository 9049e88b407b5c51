package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// bind binds the request body into i.
// Validation errors raised while decoding (eg. by course.Order) are returned as is.
func bind(ctx echo.Context, i interface{}) error {
	err := ctx.Bind(i)
	if err == nil {
		return nil
	}
	if herr, ok := err.(*echo.HTTPError); ok {
		if vErr, ok := errors.Cause(herr.Internal).(*core.ValidationError); ok {
			return vErr
		}
		return herr
	}
	return errors.Wrap(err, "binding request body")
}
