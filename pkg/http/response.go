package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONResponse writes data with the given status.
func JSONResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, data)
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return JSONResponse(c, http.StatusOK, data)
}

// ErrorJSON writes the flat error body.
func ErrorJSON(c echo.Context, status int, message string) error {
	return JSONResponse(c, status, ErrorResponse{Status: ErrorStatus, Message: message})
}

func BadRequestResponse(c echo.Context, message string) error {
	return ErrorJSON(c, http.StatusBadRequest, message)
}

func InternalServerErrorResponse(c echo.Context) error {
	return ErrorJSON(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes an *AppError with its own status. Anything else
// becomes a generic 500 so internal details never leak.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorJSON(c, appErr.Status, appErr.Message)
	}
	return InternalServerErrorResponse(c)
}

// ErrorHandler renders errors returned by handlers and by echo's router in
// the flat error shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = ErrorJSON(c, he.Code, msg)
		return
	}
	_ = AppErrorResponse(c, err)
}
