package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifttransit/booking-backend/internal/models"
)

func TestSweepExpired(t *testing.T) {
	h := newBookingHarness(t, 40)
	ctx := context.Background()

	// One stale unpaid booking, one fresh unpaid booking, one paid booking.
	stale, err := h.svc.CreateBooking(ctx, h.createRequest("1A"))
	require.NoError(t, err)

	h.now = h.now.Add(25 * time.Minute)
	fresh, err := h.svc.CreateBooking(ctx, h.createRequest("2A"))
	require.NoError(t, err)
	paid := payBooking(t, h, "3A", "PAY-EXP")

	// Advance past the 30 minute hold for the first booking only.
	h.now = h.now.Add(10 * time.Minute)

	expiry := NewBookingExpiryService(h.bookings, h.trips, 30*time.Minute, quietLogger())
	expiry.now = func() time.Time { return h.now }

	expired, err := expiry.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	staleAfter, err := h.bookings.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, staleAfter.Status)
	assert.Equal(t, "system", staleAfter.CancelledBy)
	assert.Equal(t, int64(0), staleAfter.RefundAmount)

	freshAfter, err := h.bookings.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, freshAfter.Status)

	paidAfter, err := h.bookings.GetByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, paidAfter.Status)

	// Only the stale booking's seat goes back to inventory.
	trip := h.trips.snapshot(h.trip.ID)
	assert.Equal(t, 38, trip.AvailableSeats)
	assert.NotContains(t, trip.BookedSeats, "1A")
	assert.Contains(t, trip.BookedSeats, "2A")
	assert.Contains(t, trip.BookedSeats, "3A")
}

// midSweepStore interleaves work between the sweep's listing and its guarded
// expiry updates.
type midSweepStore struct {
	*fakeBookingStore
	afterList func()
}

func (s *midSweepStore) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error) {
	stale, err := s.fakeBookingStore.ListStalePending(ctx, cutoff, limit)
	if hook := s.afterList; hook != nil {
		s.afterList = nil
		hook()
	}
	return stale, err
}

func TestSweepExpired_SettlementMidSweepKeepsBooking(t *testing.T) {
	h := newBookingHarness(t, 40)
	ctx := context.Background()

	booking, err := h.svc.CreateBooking(ctx, h.createRequest("1A"))
	require.NoError(t, err)

	h.now = h.now.Add(45 * time.Minute)

	// Settle the stale booking after the sweep listed it but before its
	// guarded expiry update runs.
	store := &midSweepStore{fakeBookingStore: h.bookings}
	store.afterList = func() {
		_, err := h.svc.ProcessPayment(ctx, booking.ID, "momo", "PAY-LATE")
		require.NoError(t, err)
	}

	expiry := NewBookingExpiryService(store, h.trips, 30*time.Minute, quietLogger())
	expiry.now = func() time.Time { return h.now }

	expired, err := expiry.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	after, err := h.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, after.Status)
	assert.Equal(t, models.PaymentStatusPaid, after.PaymentStatus)

	// The settled booking keeps its seat and its revenue.
	trip := h.trips.snapshot(h.trip.ID)
	assert.Equal(t, 39, trip.AvailableSeats)
	assert.Contains(t, trip.BookedSeats, "1A")
	assert.Equal(t, int64(10500), trip.Revenue)
}

func TestSweepExpired_NothingStale(t *testing.T) {
	h := newBookingHarness(t, 40)

	_, err := h.svc.CreateBooking(context.Background(), h.createRequest("1A"))
	require.NoError(t, err)

	expiry := NewBookingExpiryService(h.bookings, h.trips, 30*time.Minute, quietLogger())
	expiry.now = func() time.Time { return h.now }

	expired, err := expiry.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}
