package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketStatus represents the lifecycle of an issued travel credential
type TicketStatus string

const (
	TicketStatusIssued    TicketStatus = "issued"
	TicketStatusValidated TicketStatus = "validated"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is the travel credential issued after payment success. The
// signature is a signed token over (booking, trip, seat) that boarding staff
// verify offline; expiry is tied to the trip's departure.
type Ticket struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookingID  primitive.ObjectID `bson:"booking_id" json:"bookingId"`
	TripID     primitive.ObjectID `bson:"trip_id" json:"tripId"`
	SeatNumber string             `bson:"seat_number" json:"seatNumber"`
	Signature  string             `bson:"signature" json:"signature"`
	Status     TicketStatus       `bson:"status" json:"status"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expiresAt"`
	IssuedAt   time.Time          `bson:"issued_at" json:"issuedAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}
