package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/models"
)

// TripStore is the seat-inventory guard plus trip reads. Claim and release
// are single atomic document mutations; they are the only legal way to
// change seat state.
type TripStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	ClaimSeat(ctx context.Context, tripID primitive.ObjectID, seatNumber string) (bool, error)
	ReleaseSeat(ctx context.Context, tripID primitive.ObjectID, seatNumber string) (bool, error)
	AddRevenue(ctx context.Context, tripID primitive.ObjectID, delta int64) error
}

// BookingStore persists bookings with guarded status transitions.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	GetByCode(ctx context.Context, code string) (*models.Booking, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Booking, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, method, reference string) (bool, error)
	MarkPaymentFailed(ctx context.Context, id primitive.ObjectID, reference string) (bool, error)
	MarkCancelled(ctx context.Context, id primitive.ObjectID, actorID, reason string, refundAmount int64, fromPaymentStatus, toPaymentStatus models.PaymentStatus) (bool, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID, reason string) (bool, error)
	MarkCheckedIn(ctx context.Context, id primitive.ObjectID) (bool, error)
	SetTicket(ctx context.Context, id, ticketID primitive.ObjectID) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error)
}

// FareResolver computes a fare quote for a journey.
type FareResolver interface {
	ResolveFare(ctx context.Context, routeID primitive.ObjectID, fromStopID, toStopID string) (*models.FareQuote, error)
}

// TicketIssuer issues and cancels travel credentials.
type TicketIssuer interface {
	Issue(ctx context.Context, booking *models.Booking, departure time.Time) (*models.Ticket, error)
	Cancel(ctx context.Context, ticketID primitive.ObjectID) error
}

// LedgerRecorder appends revenue entries. Failures are logged, never
// propagated: the ledger must not be able to roll back a payment.
type LedgerRecorder interface {
	RecordEntry(ctx context.Context, entry models.LedgerEntry) error
}

// Notifier delivers passenger notifications, fire-and-forget.
type Notifier interface {
	SendBookingConfirmation(phone string, booking *models.Booking) error
	SendCancellationNotice(phone string, booking *models.Booking) error
}

// TxnRunner matches database.TxnRunner without importing it.
type TxnRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingServiceConfig holds booking business parameters.
type BookingServiceConfig struct {
	Currency      string
	TaxRate       float64
	CodePrefix    string
	CodeAttempts  int
	RefundCutoff  time.Duration // boundary between full and late refunds
	FullRefundPct int
	LateRefundPct int
}

// DefaultBookingConfig returns the default business parameters.
func DefaultBookingConfig() BookingServiceConfig {
	return BookingServiceConfig{
		Currency:      "GHS",
		TaxRate:       0.05,
		CodePrefix:    "BK",
		CodeAttempts:  5,
		RefundCutoff:  2 * time.Hour,
		FullRefundPct: 90,
		LateRefundPct: 50,
	}
}

// BookingService owns the booking lifecycle: creation with atomic seat
// claim, payment settlement, cancellation with time-based refunds, and
// check-in. All mutual exclusion lives in the storage layer's filtered
// updates; the service holds no locks.
type BookingService struct {
	trips    TripStore
	bookings BookingStore
	pricing  FareResolver
	tickets  TicketIssuer
	ledger   LedgerRecorder
	notifier Notifier
	txn      TxnRunner
	config   BookingServiceConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	trips TripStore,
	bookings BookingStore,
	pricing FareResolver,
	tickets TicketIssuer,
	ledger LedgerRecorder,
	notifier Notifier,
	txn TxnRunner,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	if config.CodeAttempts <= 0 {
		config.CodeAttempts = 5
	}
	return &BookingService{
		trips:    trips,
		bookings: bookings,
		pricing:  pricing,
		tickets:  tickets,
		ledger:   ledger,
		notifier: notifier,
		txn:      txn,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking validates the trip, claims the seat, resolves the fare and
// persists the booking in status PENDING. Runs under the transactional
// envelope; on any failure after a successful claim the seat is released
// before the error propagates, so no claim is ever orphaned.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewBookingError(models.ErrCodeInvalidRequest, "%s", err.Error())
	}

	tripID, err := primitive.ObjectIDFromHex(req.TripID)
	if err != nil {
		return nil, models.NewBookingError(models.ErrCodeTripNotFound, "invalid trip id: %s", req.TripID)
	}

	var booking *models.Booking
	err = s.txn.Run(ctx, func(ctx context.Context) error {
		booking, err = s.createBooking(ctx, tripID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, tripID primitive.ObjectID, req *models.CreateBookingRequest) (*models.Booking, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, models.NewBookingError(models.ErrCodeTripNotFound, "trip not found")
	}

	if err := s.checkTripBookable(trip); err != nil {
		return nil, err
	}

	claimed, err := s.trips.ClaimSeat(ctx, trip.ID, req.SeatNumber)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, models.NewBookingError(models.ErrCodeSeatUnavailable,
			"seat %s is not available on this trip", req.SeatNumber)
	}

	// Every path below must release the claim before returning an error.
	quote, err := s.pricing.ResolveFare(ctx, trip.RouteID, req.FromStopID, req.ToStopID)
	if err != nil {
		s.releaseSeatQuietly(ctx, trip.ID, req.SeatNumber)
		return nil, err
	}

	fromName, toName, err := s.resolveStopNames(ctx, trip, req.FromStopID, req.ToStopID)
	if err != nil {
		s.releaseSeatQuietly(ctx, trip.ID, req.SeatNumber)
		return nil, err
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		s.releaseSeatQuietly(ctx, trip.ID, req.SeatNumber)
		return nil, err
	}

	taxAmount := int64(float64(quote.Amount)*s.config.TaxRate + 0.5)
	totalAmount := quote.Amount - req.Discount + taxAmount

	channel := req.Channel
	if channel == "" {
		channel = models.ChannelAPI
	}

	booking := &models.Booking{
		Code:              code,
		TripID:            trip.ID,
		RouteID:           trip.RouteID,
		FromStopID:        req.FromStopID,
		ToStopID:          req.ToStopID,
		FromStopName:      fromName,
		ToStopName:        toName,
		PassengerName:     req.PassengerName,
		PassengerPhone:    req.PassengerPhone,
		PassengerEmail:    req.PassengerEmail,
		PassengerIDNumber: req.PassengerIDNumber,
		SeatNumber:        req.SeatNumber,
		BaseFare:          quote.Amount,
		Discount:          req.Discount,
		TaxAmount:         taxAmount,
		TotalAmount:       totalAmount,
		FareTier:          quote.Tier,
		Currency:          s.config.Currency,
		PaymentStatus:     models.PaymentStatusPending,
		Status:            models.BookingStatusPending,
		Channel:           channel,
		BookedBy:          req.BookedBy,
		BookedByRole:      req.BookedByRole,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseSeatQuietly(ctx, trip.ID, req.SeatNumber)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"trip_id":      trip.ID.Hex(),
		"seat":         booking.SeatNumber,
		"fare_tier":    booking.FareTier,
		"total_amount": booking.TotalAmount,
		"channel":      booking.Channel,
	}).Info("Booking created")

	return booking, nil
}

// checkTripBookable enforces the creation preconditions with status-aware
// messaging: trips that already ran report that plainly, while a scheduled
// trip whose departure passed reports the missed departure time.
func (s *BookingService) checkTripBookable(trip *models.Trip) error {
	switch trip.Status {
	case models.TripStatusCompleted, models.TripStatusInProgress:
		return models.NewBookingError(models.ErrCodeTripDeparted, "trip has already departed")
	case models.TripStatusScheduled, models.TripStatusDelayed:
	default:
		return models.NewBookingError(models.ErrCodeTripNotBookable,
			"trip is not available for booking (status: %s)", trip.Status)
	}

	departure, err := trip.DepartureAt()
	if err != nil {
		return err
	}
	if !departure.After(s.now()) {
		return models.NewBookingError(models.ErrCodeTripDeparted,
			"trip departed at %s", departure.Format("2006-01-02 15:04"))
	}
	return nil
}

// ProcessPayment settles a booking: payment recorded, status CONFIRMED,
// revenue booked, ledger entry appended (best-effort), travel credential
// issued and a confirmation dispatched. A booking already paid is rejected
// with ALREADY_PAID; callers must check status before retrying.
func (s *BookingService) ProcessPayment(ctx context.Context, bookingID primitive.ObjectID, method, reference string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewBookingError(models.ErrCodeBookingNotFound, "booking not found")
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, models.NewBookingError(models.ErrCodeAlreadyCancelled, "booking has been cancelled")
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, models.NewBookingError(models.ErrCodeAlreadyPaid, "booking is already paid")
	}

	paid, err := s.bookings.MarkPaid(ctx, booking.ID, method, reference)
	if err != nil {
		return nil, err
	}
	if !paid {
		// Lost a race with a concurrent confirmation.
		return nil, models.NewBookingError(models.ErrCodeAlreadyPaid, "booking is already paid")
	}

	now := s.now()
	booking.PaymentStatus = models.PaymentStatusPaid
	booking.Status = models.BookingStatusConfirmed
	booking.PaymentMethod = method
	booking.PaymentReference = reference
	booking.PaidAt = &now

	if err := s.trips.AddRevenue(ctx, booking.TripID, booking.TotalAmount); err != nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to add booking revenue to trip")
	}

	if err := s.ledger.RecordEntry(ctx, models.LedgerEntry{
		DebitAccount:  models.LedgerAccountCash,
		CreditAccount: models.LedgerAccountTripRevenue,
		Amount:        booking.TotalAmount,
		Currency:      booking.Currency,
		BookingCode:   booking.Code,
		TripID:        booking.TripID.Hex(),
		Memo:          "booking payment",
		RecordedAt:    now,
	}); err != nil {
		// Ledger failure must not roll back the payment.
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to record revenue ledger entry")
	}

	s.issueTicket(ctx, booking)

	go func(phone string, b models.Booking) {
		if err := s.notifier.SendBookingConfirmation(phone, &b); err != nil {
			s.logger.WithError(err).WithField("booking_code", b.Code).
				Warn("Failed to send booking confirmation")
		}
	}(booking.PassengerPhone, *booking)

	s.logger.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"method":       method,
		"reference":    reference,
		"amount":       booking.TotalAmount,
	}).Info("Booking payment settled")

	return booking, nil
}

func (s *BookingService) issueTicket(ctx context.Context, booking *models.Booking) {
	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil || trip == nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to load trip for ticket issuance")
		return
	}
	departure, err := trip.DepartureAt()
	if err != nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to compute departure for ticket issuance")
		return
	}

	tkt, err := s.tickets.Issue(ctx, booking, departure)
	if err != nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to issue ticket")
		return
	}
	if err := s.bookings.SetTicket(ctx, booking.ID, tkt.ID); err != nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to link ticket to booking")
		return
	}
	booking.TicketID = &tkt.ID
}

// CancelBooking cancels a booking, releases its seat and computes a
// time-based refund for paid bookings: 90% with at least the full-refund
// window left before departure, 50% inside the window, nothing once the trip
// departed. The trip's revenue is reduced by the full original amount so it
// reflects only non-cancelled bookings.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID primitive.ObjectID, actorID, reason string) (*models.Booking, error) {
	var (
		booking       *models.Booking
		wasPaid       bool
		refundAmount  int64
		paymentStatus models.PaymentStatus
	)

	// The guarded cancel asserts the payment state the refund was computed
	// from. A payment settling between the read and the cancel makes the
	// guard lose; one re-read recomputes the refund against the settled
	// state instead of overwriting it.
	for attempt := 0; ; attempt++ {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, models.NewBookingError(models.ErrCodeBookingNotFound, "booking not found")
		}
		if b.Status == models.BookingStatusCancelled {
			return nil, models.NewBookingError(models.ErrCodeAlreadyCancelled, "booking is already cancelled")
		}
		if b.Status == models.BookingStatusCompleted {
			return nil, models.NewBookingError(models.ErrCodeNotCancellable, "completed bookings cannot be cancelled")
		}

		trip, err := s.trips.GetByID(ctx, b.TripID)
		if err != nil {
			return nil, err
		}

		wasPaid = b.PaymentStatus == models.PaymentStatusPaid
		refundAmount = 0
		paymentStatus = b.PaymentStatus
		if wasPaid {
			pct := s.refundPercent(trip)
			refundAmount = b.TotalAmount * int64(pct) / 100
			if refundAmount > 0 {
				paymentStatus = models.PaymentStatusPartiallyRefunded
				if pct >= 100 {
					paymentStatus = models.PaymentStatusRefunded
				}
			}
			// A zero refund leaves the payment status as paid.
		}

		cancelled, err := s.bookings.MarkCancelled(ctx, b.ID, actorID, reason, refundAmount, b.PaymentStatus, paymentStatus)
		if err != nil {
			return nil, err
		}
		if cancelled {
			booking = b
			break
		}
		if attempt == 0 {
			continue
		}
		return nil, models.NewBookingError(models.ErrCodeAlreadyCancelled, "booking is already cancelled")
	}

	released, err := s.trips.ReleaseSeat(ctx, booking.TripID, booking.SeatNumber)
	if err != nil {
		s.logger.WithError(err).WithField("booking_code", booking.Code).
			Error("Failed to release seat on cancellation")
	} else if !released {
		s.logger.WithFields(logrus.Fields{
			"booking_code": booking.Code,
			"seat":         booking.SeatNumber,
		}).Warn("Seat was not marked booked at cancellation")
	}

	if wasPaid {
		if err := s.trips.AddRevenue(ctx, booking.TripID, -booking.TotalAmount); err != nil {
			s.logger.WithError(err).WithField("booking_code", booking.Code).
				Error("Failed to back out trip revenue on cancellation")
		}

		if err := s.ledger.RecordEntry(ctx, models.LedgerEntry{
			DebitAccount:  models.LedgerAccountTripRevenue,
			CreditAccount: models.LedgerAccountRefunds,
			Amount:        booking.TotalAmount,
			Currency:      booking.Currency,
			BookingCode:   booking.Code,
			TripID:        booking.TripID.Hex(),
			Memo:          "booking cancelled",
			RecordedAt:    s.now(),
		}); err != nil {
			s.logger.WithError(err).WithField("booking_code", booking.Code).
				Error("Failed to record cancellation ledger entry")
		}
	}

	if booking.TicketID != nil {
		if err := s.tickets.Cancel(ctx, *booking.TicketID); err != nil {
			s.logger.WithError(err).WithField("booking_code", booking.Code).
				Error("Failed to cancel ticket")
		}
	}

	now := s.now()
	booking.Status = models.BookingStatusCancelled
	booking.PaymentStatus = paymentStatus
	booking.RefundAmount = refundAmount
	booking.CancelledAt = &now
	booking.CancelledBy = actorID
	booking.CancellationReason = reason

	go func(phone string, b models.Booking) {
		if err := s.notifier.SendCancellationNotice(phone, &b); err != nil {
			s.logger.WithError(err).WithField("booking_code", b.Code).
				Warn("Failed to send cancellation notice")
		}
	}(booking.PassengerPhone, *booking)

	s.logger.WithFields(logrus.Fields{
		"booking_code":  booking.Code,
		"refund_amount": refundAmount,
		"cancelled_by":  actorID,
	}).Info("Booking cancelled")

	return booking, nil
}

// refundPercent maps time-to-departure onto the refund schedule. Exactly at
// the cutoff counts as the generous side.
func (s *BookingService) refundPercent(trip *models.Trip) int {
	if trip == nil {
		return 0
	}
	departure, err := trip.DepartureAt()
	if err != nil {
		return 0
	}
	until := departure.Sub(s.now())
	switch {
	case until >= s.config.RefundCutoff:
		return s.config.FullRefundPct
	case until > 0:
		return s.config.LateRefundPct
	default:
		return 0
	}
}

// CheckInBooking marks a confirmed booking as checked in at boarding.
func (s *BookingService) CheckInBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewBookingError(models.ErrCodeBookingNotFound, "booking not found")
	}

	checkedIn, err := s.bookings.MarkCheckedIn(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !checkedIn {
		return nil, models.NewBookingError(models.ErrCodeNotConfirmed,
			"only confirmed bookings can be checked in (status: %s)", booking.Status)
	}

	booking.Status = models.BookingStatusCheckedIn
	return booking, nil
}

// GetBooking resolves a booking by document id or human-readable code.
func (s *BookingService) GetBooking(ctx context.Context, ref string) (*models.Booking, error) {
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		booking, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if booking != nil {
			return booking, nil
		}
	}
	booking, err := s.bookings.GetByCode(ctx, ref)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewBookingError(models.ErrCodeBookingNotFound, "booking not found")
	}
	return booking, nil
}

// SettleFromWebhook applies a payment-provider callback. Correlation uses
// the provider reference first, then a booking code embedded in provider
// metadata. A duplicate completion for an already-settled booking is a
// logged no-op, not an error.
func (s *BookingService) SettleFromWebhook(ctx context.Context, providerRef, bookingCode, status string) error {
	booking, err := s.bookings.GetByPaymentReference(ctx, providerRef)
	if err != nil {
		return err
	}
	if booking == nil && bookingCode != "" {
		booking, err = s.bookings.GetByCode(ctx, bookingCode)
		if err != nil {
			return err
		}
	}
	if booking == nil {
		return models.NewBookingError(models.ErrCodeBookingNotFound,
			"no booking matches payment reference %s", providerRef)
	}

	switch status {
	case "COMPLETED":
		if booking.PaymentStatus == models.PaymentStatusPaid {
			s.logger.WithFields(logrus.Fields{
				"booking_code": booking.Code,
				"reference":    providerRef,
			}).Info("Duplicate payment confirmation ignored")
			return nil
		}
		_, err := s.ProcessPayment(ctx, booking.ID, "gateway", providerRef)
		if models.IsCode(err, models.ErrCodeAlreadyPaid) {
			return nil
		}
		return err

	case "FAILED", "CANCELLED":
		if _, err := s.bookings.MarkPaymentFailed(ctx, booking.ID, providerRef); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"booking_code": booking.Code,
			"status":       status,
		}).Info("Payment marked failed from webhook")
		return nil

	default:
		return fmt.Errorf("unknown payment webhook status: %s", status)
	}
}

// releaseSeatQuietly is the compensating step for a claimed seat when a
// later stage of booking creation fails. Release failures are logged, never
// thrown, so the original error reaches the caller.
func (s *BookingService) releaseSeatQuietly(ctx context.Context, tripID primitive.ObjectID, seatNumber string) {
	released, err := s.trips.ReleaseSeat(ctx, tripID, seatNumber)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"trip_id": tripID.Hex(),
			"seat":    seatNumber,
		}).Error("Failed to release seat after booking failure")
		return
	}
	if !released {
		s.logger.WithFields(logrus.Fields{
			"trip_id": tripID.Hex(),
			"seat":    seatNumber,
		}).Warn("Seat release after booking failure matched nothing")
	}
}

// resolveStopNames resolves both endpoints against the trip's frozen stops,
// falling back to branch records for direct origin/destination travel.
func (s *BookingService) resolveStopNames(ctx context.Context, trip *models.Trip, fromStopID, toStopID string) (string, string, error) {
	fromName := s.stopName(ctx, trip, fromStopID)
	toName := s.stopName(ctx, trip, toStopID)
	if fromName == "" || toName == "" {
		return "", "", models.NewBookingError(models.ErrCodeInvalidStop,
			"invalid stop selection for this trip")
	}
	return fromName, toName, nil
}

func (s *BookingService) stopName(ctx context.Context, trip *models.Trip, stopID string) string {
	if stop := trip.FindStop(stopID); stop != nil {
		return stop.Name
	}
	if resolver, ok := s.pricing.(interface {
		BranchName(ctx context.Context, stopID string) (string, error)
	}); ok {
		if name, err := resolver.BranchName(ctx, stopID); err == nil && name != "" {
			return name
		}
	}
	return ""
}

// Alphabet for booking codes: no 0/O, 1/I or similar shapes, so codes
// survive being read over the phone.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func (s *BookingService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.config.CodeAttempts; attempt++ {
		code, err := randomCode(s.config.CodePrefix, 6)
		if err != nil {
			return "", err
		}
		exists, err := s.bookings.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", models.NewBookingError(models.ErrCodeDuplicateBookingID,
		"could not generate a unique booking code after %d attempts", s.config.CodeAttempts)
}

func randomCode(prefix string, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + string(buf), nil
}
