package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/swifttransit/booking-backend/internal/models"
)

// TripRepository handles trip documents. Seat mutations are single filtered
// updates: the filter re-checks availability so the operation is a
// compare-and-swap, safe under arbitrary concurrency with no application
// locks.
type TripRepository struct {
	coll *mongo.Collection
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{coll: db.Collection(CollTrips)}
}

// GetByID returns the trip, or nil if it does not exist.
func (r *TripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// ClaimSeat atomically claims one seat. It succeeds only if the trip still
// has available seats and the seat is not already booked; the filter carries
// both conditions so the storage engine guarantees exactly one winner under
// concurrent attempts. Returns false when the seat cannot be claimed.
func (r *TripRepository) ClaimSeat(ctx context.Context, tripID primitive.ObjectID, seatNumber string) (bool, error) {
	filter := bson.M{
		"_id":             tripID,
		"available_seats": bson.M{"$gt": 0},
		"booked_seats":    bson.M{"$ne": seatNumber},
	}
	update := bson.M{
		"$inc":      bson.M{"available_seats": -1, "passengers": 1},
		"$addToSet": bson.M{"booked_seats": seatNumber},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim seat %s: %w", seatNumber, err)
	}
	return result.ModifiedCount == 1, nil
}

// ReleaseSeat atomically reverses a claim. It succeeds only if the seat is
// currently marked booked, so releasing twice is a no-op.
func (r *TripRepository) ReleaseSeat(ctx context.Context, tripID primitive.ObjectID, seatNumber string) (bool, error) {
	filter := bson.M{
		"_id":          tripID,
		"booked_seats": seatNumber,
	}
	update := bson.M{
		"$inc":  bson.M{"available_seats": 1, "passengers": -1},
		"$pull": bson.M{"booked_seats": seatNumber},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release seat %s: %w", seatNumber, err)
	}
	return result.ModifiedCount == 1, nil
}

// AddRevenue atomically adjusts the trip's running revenue total. Pass a
// negative delta to back out revenue on cancellation.
func (r *TripRepository) AddRevenue(ctx context.Context, tripID primitive.ObjectID, delta int64) error {
	update := bson.M{
		"$inc": bson.M{"revenue": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": tripID}, update)
	if err != nil {
		return fmt.Errorf("failed to adjust trip revenue: %w", err)
	}
	return nil
}

// UpdateStatus transitions the trip lifecycle status.
func (r *TripRepository) UpdateStatus(ctx context.Context, tripID primitive.ObjectID, status models.TripStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": tripID}, update)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.NewBookingError(models.ErrCodeTripNotFound, "trip not found")
	}
	return nil
}
