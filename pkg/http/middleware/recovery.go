package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "SmartLoan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a flat 500 body.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("panic recovered",
					applogger.Error(perr),
					applogger.String("path", c.Path()),
					applogger.String("stack", string(debug.Stack())),
				)
				err = c.JSON(http.StatusInternalServerError, map[string]string{
					"status":  "Error",
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}
