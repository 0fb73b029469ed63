package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swifttransit/booking-backend/internal/models"
)

// respondData writes the standard success envelope.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondMessage writes a success envelope with a message and optional data.
func respondMessage(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError maps an error onto the HTTP surface. Domain errors carry a
// machine-readable code and map to specific statuses; anything else is an
// opaque 500 so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	var domainErr *models.BookingError
	if !errors.As(err, &domainErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "INTERNAL_ERROR",
			"message": "an internal error occurred",
		})
		return
	}

	c.JSON(statusForCode(domainErr.Code), gin.H{
		"success": false,
		"error":   string(domainErr.Code),
		"message": domainErr.Message,
	})
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrCodeTripNotFound, models.ErrCodeBookingNotFound, models.ErrCodeRouteNotFound:
		return http.StatusNotFound
	case models.ErrCodeSeatUnavailable, models.ErrCodeAlreadyPaid, models.ErrCodeAlreadyCancelled,
		models.ErrCodeNotCancellable, models.ErrCodeNotConfirmed, models.ErrCodeDuplicateBookingID:
		return http.StatusConflict
	case models.ErrCodeInvalidRequest, models.ErrCodeInvalidStop, models.ErrCodeFareNotDefined,
		models.ErrCodeTripDeparted, models.ErrCodeTripNotBookable:
		return http.StatusBadRequest
	case models.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
