package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Messages returned for the first failing field of a request body.
const (
	MsgInvalidBody = "invalid request body"
	MsgMissing     = "is missing"
	MsgNotNumber   = "must be a number"
)

var validate *validator.Validate

// MissingMessage and NotNumberMessage are the client-facing texts for a
// field that is absent or does not convert to a number.
func MissingMessage(field string) string { return field + " " + MsgMissing }

func NotNumberMessage(field string) string { return field + " " + MsgNotNumber }

// floater is satisfied by request field types that carry a raw numeric
// value, such as models.Number.
type floater interface {
	Float64() (float64, error)
}

func init() {
	validate = validator.New()

	// Report json names so messages match what clients sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation("numberlike", validateNumberLike); err != nil {
		panic(fmt.Sprintf("register numberlike validator: %v", err))
	}
}

func validateNumberLike(fl validator.FieldLevel) bool {
	field := fl.Field()
	if !field.CanInterface() {
		return false
	}
	if f, ok := field.Interface().(floater); ok {
		_, err := f.Float64()
		return err == nil
	}
	switch field.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// ReadAndValidateRequest binds the body into req, applies defaults and runs
// struct validation. Only one failing field is reported: the first missing
// field in struct order if any, otherwise the first field that failed
// another rule.
func ReadAndValidateRequest(c echo.Context, req interface{}) *AppError {
	if err := c.Bind(req); err != nil {
		return BadRequestError(MsgInvalidBody).WithError(err)
	}

	if err := defaults.Set(req); err != nil {
		return BadRequestError(MsgInvalidBody).WithError(err)
	}

	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return firstValidationError(err)
	}

	return nil
}

func firstValidationError(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		for _, e := range validationErrors {
			if e.Tag() == "required" {
				fe = e
				break
			}
		}
		return ValidationFailed(fe.Field(), getErrorMessage(fe)).WithError(err)
	}
	return BadRequestError(MsgInvalidBody).WithError(err)
}

func getErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return MissingMessage(field)
	case "numberlike":
		return NotNumberMessage(field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
