package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/database"
	"github.com/swifttransit/booking-backend/internal/models"
)

// TripHandler serves trip seat availability
type TripHandler struct {
	tripRepo *database.TripRepository
	logger   *logrus.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(tripRepo *database.TripRepository, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		tripRepo: tripRepo,
		logger:   logger,
	}
}

// seatAvailability is the seat summary returned for a trip.
type seatAvailability struct {
	TripID         string   `json:"tripId"`
	Status         string   `json:"status"`
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
	BookedSeats    []string `json:"bookedSeats"`
}

// GetTripSeats returns the seat availability snapshot for a trip
// @Summary Get trip seat availability
// @Description Returns total, available and booked seats. The snapshot may be stale by the time a booking is attempted; the claim operation is authoritative.
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /trips/{id}/seats [get]
func (h *TripHandler) GetTripSeats(c *gin.Context) {
	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, models.NewBookingError(models.ErrCodeInvalidRequest, "invalid trip id"))
		return
	}

	trip, err := h.tripRepo.GetByID(c.Request.Context(), tripID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get trip")
		respondError(c, err)
		return
	}
	if trip == nil {
		respondError(c, models.NewBookingError(models.ErrCodeTripNotFound, "trip not found"))
		return
	}

	booked := trip.BookedSeats
	if booked == nil {
		booked = []string{}
	}

	respondData(c, http.StatusOK, seatAvailability{
		TripID:         trip.ID.Hex(),
		Status:         string(trip.Status),
		TotalSeats:     trip.TotalSeats,
		AvailableSeats: trip.AvailableSeats,
		BookedSeats:    booked,
	})
}
