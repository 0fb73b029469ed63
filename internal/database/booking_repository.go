package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swifttransit/booking-backend/internal/models"
)

// BookingRepository handles booking documents. Status transitions are
// guarded updates: the filter names the only legal prior state, so racing
// callers cannot both win.
type BookingRepository struct {
	coll *mongo.Collection
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{coll: db.Collection(CollBookings)}
}

// EnsureIndexes creates the unique booking-code index and the webhook
// correlation index. Called once at startup.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "payment_reference", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "payment_status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// Create inserts a new booking document.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID returns the booking, or nil if it does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByCode returns the booking with the given human-readable code, or nil.
func (r *BookingRepository) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

// GetByPaymentReference returns the booking correlated to a payment-provider
// reference, or nil.
func (r *BookingRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Booking, error) {
	if reference == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"payment_reference": reference})
}

func (r *BookingRepository) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	var booking models.Booking
	err := r.coll.FindOne(ctx, filter).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// CodeExists reports whether a booking already uses the given code.
func (r *BookingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check booking code: %w", err)
	}
	return count > 0, nil
}

// MarkPaid transitions payment_status pending → paid and status → confirmed.
// Returns false if the booking was not in a payable state, which makes
// duplicate confirmations lose the race atomically.
func (r *BookingRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, method, reference string) (bool, error) {
	now := time.Now()
	filter := bson.M{"_id": id, "payment_status": models.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"payment_status":    models.PaymentStatusPaid,
		"status":            models.BookingStatusConfirmed,
		"payment_method":    method,
		"payment_reference": reference,
		"paid_at":           now,
		"updated_at":        now,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkPaymentFailed records a failed gateway outcome for a still-pending
// payment.
func (r *BookingRepository) MarkPaymentFailed(ctx context.Context, id primitive.ObjectID, reference string) (bool, error) {
	filter := bson.M{"_id": id, "payment_status": models.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"payment_status":    models.PaymentStatusFailed,
		"payment_reference": reference,
		"updated_at":        time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkCancelled transitions the booking to cancelled unless it is already
// cancelled or completed. The filter also asserts the payment state the
// caller computed the refund from, so a payment landing between the caller's
// read and this update loses cleanly instead of being overwritten. Returns
// false when the guard loses.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id primitive.ObjectID, actorID, reason string, refundAmount int64, fromPaymentStatus, toPaymentStatus models.PaymentStatus) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id":            id,
		"status":         bson.M{"$nin": bson.A{models.BookingStatusCancelled, models.BookingStatusCompleted}},
		"payment_status": fromPaymentStatus,
	}
	update := bson.M{"$set": bson.M{
		"status":              models.BookingStatusCancelled,
		"payment_status":      toPaymentStatus,
		"cancelled_at":        now,
		"cancelled_by":        actorID,
		"cancellation_reason": reason,
		"refund_amount":       refundAmount,
		"updated_at":          now,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkExpired is the reconciliation sweep's transition from pending and
// unpaid to cancelled by the system. The filter asserts both states, so a
// booking that settles mid-sweep keeps its payment and its seat. Returns
// false when the guard loses.
func (r *BookingRepository) MarkExpired(ctx context.Context, id primitive.ObjectID, reason string) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id":            id,
		"status":         models.BookingStatusPending,
		"payment_status": models.PaymentStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":              models.BookingStatusCancelled,
		"cancelled_at":        now,
		"cancelled_by":        "system",
		"cancellation_reason": reason,
		"refund_amount":       int64(0),
		"updated_at":          now,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to expire booking: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkCheckedIn transitions confirmed → checked_in. Returns false if the
// booking was not confirmed.
func (r *BookingRepository) MarkCheckedIn(ctx context.Context, id primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, "status": models.BookingStatusConfirmed}
	update := bson.M{"$set": bson.M{
		"status":     models.BookingStatusCheckedIn,
		"updated_at": time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to check in booking: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// SetTicket links an issued travel credential to the booking.
func (r *BookingRepository) SetTicket(ctx context.Context, id, ticketID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"ticket_id": ticketID, "updated_at": time.Now()}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to link ticket: %w", err)
	}
	return nil
}

// ListStalePending returns unpaid PENDING bookings created before the
// cutoff, oldest first, for the reconciliation sweep.
func (r *BookingRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error) {
	filter := bson.M{
		"status":         models.BookingStatusPending,
		"payment_status": models.PaymentStatusPending,
		"created_at":     bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode stale pending bookings: %w", err)
	}
	return bookings, nil
}
