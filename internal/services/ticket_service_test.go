package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/pkg/ticket"
)

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[primitive.ObjectID]*models.Ticket)}
}

func (s *fakeTicketStore) Create(_ context.Context, tkt *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tkt.ID = primitive.NewObjectID()
	copied := *tkt
	s.tickets[tkt.ID] = &copied
	return nil
}

func (s *fakeTicketStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tkt, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *tkt
	return &copied, nil
}

func (s *fakeTicketStore) GetByBookingID(_ context.Context, bookingID primitive.ObjectID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tkt := range s.tickets {
		if tkt.BookingID == bookingID {
			copied := *tkt
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeTicketStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tkt, ok := s.tickets[id]; ok {
		tkt.Status = status
	}
	return nil
}

func ticketHarness(grace time.Duration) (*TicketService, *fakeTicketStore) {
	store := newFakeTicketStore()
	signer := ticket.NewSigner("test-secret", grace)
	return NewTicketService(signer, store, quietLogger()), store
}

func TestTicketService_ValidateOnce(t *testing.T) {
	svc, store := ticketHarness(6 * time.Hour)
	ctx := context.Background()

	booking := &models.Booking{
		ID:         primitive.NewObjectID(),
		TripID:     primitive.NewObjectID(),
		Code:       "BKTEST01",
		SeatNumber: "12A",
	}
	tkt, err := svc.Issue(ctx, booking, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusIssued, tkt.Status)

	claims, err := svc.Validate(ctx, tkt.Signature)
	require.NoError(t, err)
	assert.Equal(t, booking.ID.Hex(), claims.BookingID)
	assert.Equal(t, "12A", claims.SeatNumber)

	stored, err := store.GetByID(ctx, tkt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusValidated, stored.Status)

	// A ticket may only board once.
	_, err = svc.Validate(ctx, tkt.Signature)
	assert.Error(t, err)
}

func TestTicketService_ValidateCancelled(t *testing.T) {
	svc, _ := ticketHarness(6 * time.Hour)
	ctx := context.Background()

	booking := &models.Booking{
		ID:         primitive.NewObjectID(),
		TripID:     primitive.NewObjectID(),
		SeatNumber: "3C",
	}
	tkt, err := svc.Issue(ctx, booking, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, tkt.ID))

	_, err = svc.Validate(ctx, tkt.Signature)
	assert.Error(t, err)
}

func TestTicketService_ExpiredCredentialMarksStoredTicket(t *testing.T) {
	// Zero grace and a departure in the past yields an expired credential.
	svc, store := ticketHarness(0)
	ctx := context.Background()

	booking := &models.Booking{
		ID:         primitive.NewObjectID(),
		TripID:     primitive.NewObjectID(),
		SeatNumber: "7B",
	}
	tkt, err := svc.Issue(ctx, booking, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.Validate(ctx, tkt.Signature)
	require.Error(t, err)

	stored, err := store.GetByID(ctx, tkt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusExpired, stored.Status)
}
