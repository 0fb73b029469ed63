package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/pkg/ticket"
)

// TicketStore persists issued travel credentials.
type TicketStore interface {
	Create(ctx context.Context, tkt *models.Ticket) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	GetByBookingID(ctx context.Context, bookingID primitive.ObjectID) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TicketStatus) error
}

// TicketService issues signed travel credentials for confirmed bookings and
// validates them at boarding.
type TicketService struct {
	signer  *ticket.Signer
	tickets TicketStore
	logger  *logrus.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(signer *ticket.Signer, tickets TicketStore, logger *logrus.Logger) *TicketService {
	return &TicketService{
		signer:  signer,
		tickets: tickets,
		logger:  logger,
	}
}

// Issue signs and stores a credential for a paid booking. The credential
// expires a grace window after scheduled departure.
func (s *TicketService) Issue(ctx context.Context, booking *models.Booking, departure time.Time) (*models.Ticket, error) {
	signature, expiresAt, err := s.signer.Sign(
		booking.ID.Hex(), booking.TripID.Hex(), booking.SeatNumber, departure)
	if err != nil {
		return nil, err
	}

	tkt := &models.Ticket{
		BookingID:  booking.ID,
		TripID:     booking.TripID,
		SeatNumber: booking.SeatNumber,
		Signature:  signature,
		Status:     models.TicketStatusIssued,
		ExpiresAt:  expiresAt,
	}
	if err := s.tickets.Create(ctx, tkt); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"ticket_id":    tkt.ID.Hex(),
		"expires_at":   expiresAt.Format(time.RFC3339),
	}).Info("Ticket issued")

	return tkt, nil
}

// Validate verifies a presented credential and marks it validated. A ticket
// may only be validated once. Presenting an expired credential moves the
// stored ticket to expired so its record reflects that it can never board.
func (s *TicketService) Validate(ctx context.Context, signature string) (*ticket.Claims, error) {
	claims, err := s.signer.Verify(signature)
	if errors.Is(err, ticket.ErrExpired) && claims != nil {
		s.expireStored(ctx, claims.BookingID)
		return nil, fmt.Errorf("ticket verification failed: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket verification failed: %w", err)
	}

	bookingID, err := primitive.ObjectIDFromHex(claims.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking id in ticket claims")
	}
	tkt, err := s.tickets.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if tkt == nil {
		return nil, fmt.Errorf("no ticket on record for this booking")
	}
	if tkt.Status != models.TicketStatusIssued {
		return nil, fmt.Errorf("ticket is %s", tkt.Status)
	}
	if err := s.tickets.UpdateStatus(ctx, tkt.ID, models.TicketStatusValidated); err != nil {
		s.logger.WithError(err).WithField("ticket_id", tkt.ID.Hex()).
			Error("Failed to mark ticket validated")
	}

	return claims, nil
}

// Cancel voids a credential so it can no longer be validated.
func (s *TicketService) Cancel(ctx context.Context, ticketID primitive.ObjectID) error {
	return s.tickets.UpdateStatus(ctx, ticketID, models.TicketStatusCancelled)
}

func (s *TicketService) expireStored(ctx context.Context, bookingIDHex string) {
	bookingID, err := primitive.ObjectIDFromHex(bookingIDHex)
	if err != nil {
		return
	}
	tkt, err := s.tickets.GetByBookingID(ctx, bookingID)
	if err != nil || tkt == nil {
		return
	}
	if tkt.Status != models.TicketStatusIssued {
		return
	}
	if err := s.tickets.UpdateStatus(ctx, tkt.ID, models.TicketStatusExpired); err != nil {
		s.logger.WithError(err).WithField("ticket_id", tkt.ID.Hex()).
			Error("Failed to mark ticket expired")
	}
}
