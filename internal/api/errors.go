package api

import (
	"errors"   // Error kind checks
	"net/http" // HTTP status codes

	"trading_ledger/internal/domain" // Error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// StatusLocked is returned while an account is locked out after failed PINs
const StatusLocked = http.StatusLocked

// errorStatus maps a ledger error onto an HTTP status and a client message.
// Unknown errors become 500 with fallback as the message.
func errorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPINLocked):
		return StatusLocked, domain.ErrPINLocked.Error()
	case errors.Is(err, domain.ErrWrongPIN):
		return http.StatusUnauthorized, domain.ErrWrongPIN.Error()
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden, domain.ErrAccountInactive.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient funds"
	case errors.Is(err, domain.ErrInsufficientCredit):
		return http.StatusUnprocessableEntity, "insufficient credit"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "concurrent update, please retry"
	default:
		return http.StatusInternalServerError, fallback
	}
}

// respondError writes err as a JSON error body, logging server faults
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := errorStatus(err, fallback)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error(fallback)
	}
	c.JSON(status, gin.H{"error": msg})
}
