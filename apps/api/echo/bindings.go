package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pathways/core"
)

const (
	limitParam = "limit"
	limitText  = "must be a positive number"
)

// Limit is the optional `?limit=n` of list endpoints. Zero means "use the default".
type Limit struct {
	N int
}

func (l *Limit) Bind(ctx echo.Context) error {
	val := core.CleanString(ctx.QueryParam(limitParam))
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: limitParam, Error: limitText})
	}
	l.N = n
	return nil
}
