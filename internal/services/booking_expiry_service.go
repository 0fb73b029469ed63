package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const expiredBookingBatchSize = 100

// BookingExpiryService reconciles abandoned bookings. A booking left unpaid
// past the hold TTL is cancelled and its seat returned to inventory, so
// crashed clients and abandoned checkouts cannot hold seats indefinitely.
type BookingExpiryService struct {
	bookings BookingStore
	trips    TripStore
	cron     *cron.Cron
	logger   *logrus.Logger
	holdTTL  time.Duration
	now      func() time.Time
}

// NewBookingExpiryService creates a new BookingExpiryService
func NewBookingExpiryService(bookings BookingStore, trips TripStore, holdTTL time.Duration, logger *logrus.Logger) *BookingExpiryService {
	return &BookingExpiryService{
		bookings: bookings,
		trips:    trips,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		holdTTL:  holdTTL,
		now:      time.Now,
	}
}

// Start schedules the sweep to run every minute.
func (s *BookingExpiryService) Start() error {
	_, err := s.cron.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		expired, err := s.SweepExpired(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Booking expiry sweep failed")
			return
		}
		if expired > 0 {
			s.logger.WithField("count", expired).Info("Expired unpaid bookings")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("hold_ttl", s.holdTTL.String()).Info("Booking expiry service started")
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *BookingExpiryService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Booking expiry service stopped")
}

// SweepExpired cancels pending bookings whose hold expired and releases
// their seats. Returns the number of bookings expired. MarkExpired asserts
// pending status and pending payment in its filter, so a booking that
// settles between the listing and the guarded update wins the race and
// keeps its seat.
func (s *BookingExpiryService) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.holdTTL)

	stale, err := s.bookings.ListStalePending(ctx, cutoff, expiredBookingBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, booking := range stale {
		cancelled, err := s.bookings.MarkExpired(ctx, booking.ID, "booking hold expired")
		if err != nil {
			s.logger.WithError(err).WithField("booking_code", booking.Code).
				Error("Failed to expire booking")
			continue
		}
		if !cancelled {
			// Paid or cancelled since we listed it.
			continue
		}

		released, err := s.trips.ReleaseSeat(ctx, booking.TripID, booking.SeatNumber)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_code": booking.Code,
				"seat":         booking.SeatNumber,
			}).Error("Failed to release seat for expired booking")
		} else if !released {
			s.logger.WithFields(logrus.Fields{
				"booking_code": booking.Code,
				"seat":         booking.SeatNumber,
			}).Warn("Seat for expired booking was not marked booked")
		}

		s.logger.WithFields(logrus.Fields{
			"booking_code": booking.Code,
			"created_at":   booking.CreatedAt.Format(time.RFC3339),
		}).Info("Expired unpaid booking cancelled")
		expired++
	}

	return expired, nil
}
