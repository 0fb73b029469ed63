package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/middleware"
	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/internal/services"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking reserves a seat and creates a pending booking
// @Summary Create a booking
// @Description Claims the seat, resolves the fare and creates a PENDING booking awaiting payment
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Validation or fare error"
// @Failure 409 {object} map[string]interface{} "Seat unavailable"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewBookingError(models.ErrCodeInvalidRequest, "invalid request: %s", err.Error()))
		return
	}

	if req.Channel == "" {
		req.Channel = middleware.GetChannel(c)
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).Error("Failed to create booking")
		}
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, booking)
}

// payRequest is the payload for settling a booking directly.
type payRequest struct {
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference" binding:"required"`
}

// PayBooking settles payment for a pending booking
// @Summary Pay for a booking
// @Description Records payment, confirms the booking and issues the travel ticket
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body payRequest true "Payment details"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Already paid"
// @Router /bookings/{id}/pay [post]
func (h *BookingHandler) PayBooking(c *gin.Context) {
	bookingID, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewBookingError(models.ErrCodeInvalidRequest, "invalid request: %s", err.Error()))
		return
	}

	booking, err := h.bookingService.ProcessPayment(c.Request.Context(), bookingID, req.Method, req.Reference)
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).Error("Failed to process payment")
		}
		respondError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "payment settled", booking)
}

// cancelRequest is the payload for cancelling a booking.
type cancelRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
}

// CancelBooking cancels a booking and computes any refund
// @Summary Cancel a booking
// @Description Releases the seat and computes a time-based refund for paid bookings
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body cancelRequest false "Cancellation details"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Already cancelled or completed"
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req cancelRequest
	_ = c.ShouldBindJSON(&req)
	if req.CancelledBy == "" {
		req.CancelledBy = "passenger"
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), bookingID, req.CancelledBy, req.Reason)
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).Error("Failed to cancel booking")
		}
		respondError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "booking cancelled", booking)
}

// CheckInBooking marks a confirmed booking as checked in
// @Summary Check in a booking
// @Description Transitions a confirmed booking to checked-in at boarding
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Not confirmed"
// @Router /bookings/{id}/check-in [post]
func (h *BookingHandler) CheckInBooking(c *gin.Context) {
	bookingID, ok := h.bookingID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.CheckInBooking(c.Request.Context(), bookingID)
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).Error("Failed to check in booking")
		}
		respondError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "checked in", booking)
}

// GetBooking returns a booking by document id or booking code
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID or code"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).Error("Failed to get booking")
		}
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, booking)
}

func (h *BookingHandler) bookingID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, models.NewBookingError(models.ErrCodeInvalidRequest, "invalid booking id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
