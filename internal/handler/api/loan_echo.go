package api

import (
	"errors"
	"net/http"

	"SmartLoan/internal/domain/models"
	domsvc "SmartLoan/internal/domain/service"
	"SmartLoan/internal/usecase"
	xhttp "SmartLoan/pkg/http"
	xlogger "SmartLoan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// LoanEchoHandler serves the loan decision API.
type LoanEchoHandler struct {
	logger *xlogger.Logger
	engine domsvc.DecisionEngine
}

func NewLoanEchoHandler(logger *xlogger.Logger, engine domsvc.DecisionEngine) *LoanEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &LoanEchoHandler{logger: logger, engine: engine}
}

func (h *LoanEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Home)
	e.GET("/healthz", h.Health)
	e.POST("/apply-loan", h.ApplyLoan)
}

func (h *LoanEchoHandler) Home(c echo.Context) error {
	return xhttp.SuccessResponse(c, xhttp.MessageResponse{Message: models.WelcomeMessage})
}

func (h *LoanEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, xhttp.HealthResponse{Status: "ok"})
}

// ApplyLoan validates the four application fields, runs the decision engine
// and returns {"status","approval_probability","reason"}.
func (h *LoanEchoHandler) ApplyLoan(c echo.Context) error {
	req := &models.ApplyLoanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.logger.Debug("apply-loan rejected", xlogger.String("reason", verr.Message))
		return xhttp.AppErrorResponse(c, verr)
	}

	app, err := req.Application()
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			msg := xhttp.NotNumberMessage(verr.Field)
			if errors.Is(err, models.ErrMissing) {
				msg = xhttp.MissingMessage(verr.Field)
			}
			return xhttp.BadRequestResponse(c, msg)
		}
		return xhttp.BadRequestResponse(c, xhttp.MsgInvalidBody)
	}

	decision, err := h.engine.Decide(c.Request().Context(), app)
	if err != nil {
		if errors.Is(err, usecase.ErrInference) {
			return xhttp.ErrorJSON(c, http.StatusInternalServerError, "inference failed")
		}
		h.logger.Error("apply-loan failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	return xhttp.SuccessResponse(c, models.NewDecisionResponse(decision))
}
