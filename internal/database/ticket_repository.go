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

// TicketRepository handles travel-credential documents.
type TicketRepository struct {
	coll *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{coll: db.Collection(CollTickets)}
}

// Create inserts a new ticket document.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	now := time.Now()
	ticket.IssuedAt = now
	ticket.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, ticket)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID returns the ticket, or nil if it does not exist.
func (r *TicketRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

// GetByBookingID returns the ticket issued for a booking, or nil.
func (r *TicketRepository) GetByBookingID(ctx context.Context, bookingID primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.coll.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by booking: %w", err)
	}
	return &ticket, nil
}

// UpdateStatus transitions the ticket status.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TicketStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	return nil
}
