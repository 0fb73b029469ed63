package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/pkg/sms"
)

// NotificationService formats and dispatches passenger SMS notifications.
// Delivery is best-effort; a failed send never affects booking state.
type NotificationService struct {
	gateway sms.Gateway
	logger  *logrus.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(gateway sms.Gateway, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		gateway: gateway,
		logger:  logger,
	}
}

// SendBookingConfirmation notifies the passenger that payment succeeded.
func (s *NotificationService) SendBookingConfirmation(phone string, booking *models.Booking) error {
	message := fmt.Sprintf(
		"Your booking %s is confirmed. %s to %s, seat %s. Paid %s. Show your ticket when boarding.",
		booking.Code,
		booking.FromStopName,
		booking.ToStopName,
		booking.SeatNumber,
		formatAmount(booking.TotalAmount, booking.Currency),
	)
	if err := s.gateway.Send(phone, message); err != nil {
		return fmt.Errorf("failed to send booking confirmation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"gateway":      s.gateway.GetName(),
	}).Info("Booking confirmation sent")
	return nil
}

// SendCancellationNotice notifies the passenger of a cancellation and any
// refund due.
func (s *NotificationService) SendCancellationNotice(phone string, booking *models.Booking) error {
	message := fmt.Sprintf("Your booking %s has been cancelled.", booking.Code)
	if booking.RefundAmount > 0 {
		message = fmt.Sprintf("%s A refund of %s will be processed to your payment method.",
			message, formatAmount(booking.RefundAmount, booking.Currency))
	}
	if err := s.gateway.Send(phone, message); err != nil {
		return fmt.Errorf("failed to send cancellation notice: %w", err)
	}
	return nil
}

// formatAmount renders minor currency units for human-readable messages.
// Money stays integral everywhere else.
func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, minor/100, minor%100)
}
