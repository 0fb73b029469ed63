package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/swifttransit/booking-backend/internal/services"
)

// TicketHandler serves travel-credential validation for boarding staff
type TicketHandler struct {
	ticketService *services.TicketService
	logger        *logrus.Logger
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService *services.TicketService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        logger,
	}
}

type validateTicketRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// ValidateTicket verifies a presented travel credential
// @Summary Validate a ticket
// @Description Verifies the credential signature and expiry and marks the ticket validated. A ticket can only be validated once.
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body validateTicketRequest true "Ticket signature"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Missing signature"
// @Failure 422 {object} map[string]interface{} "Invalid, expired or already-used ticket"
// @Router /tickets/validate [post]
func (h *TicketHandler) ValidateTicket(c *gin.Context) {
	var req validateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_REQUEST", "message": "signature is required"})
		return
	}

	claims, err := h.ticketService.Validate(c.Request.Context(), req.Signature)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "INVALID_TICKET", "message": err.Error()})
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"bookingId":  claims.BookingID,
		"tripId":     claims.TripID,
		"seatNumber": claims.SeatNumber,
	})
}
