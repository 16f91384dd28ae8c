package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
	"github.com/hydranet/hydrabill/internal/scheduler"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, scheduler.ErrUnknownJob),
		errors.Is(err, settingsdomain.ErrUnknownKey):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, settingsdomain.ErrInvalidValue),
		errors.Is(err, settingsdomain.ErrOutOfRange),
		errors.Is(err, paymentdomain.ErrMissingTransactionID),
		errors.Is(err, paymentdomain.ErrMissingAccount),
		errors.Is(err, paymentdomain.ErrNonPositiveAmount),
		errors.Is(err, paymentdomain.ErrMissingMethod),
		errors.Is(err, customerdomain.ErrInvalidAccountNumber):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
