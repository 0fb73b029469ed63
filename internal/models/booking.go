package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// PaymentStatus represents the payment state of a booking
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// BookingChannel identifies where a booking originated
type BookingChannel string

const (
	ChannelWeb    BookingChannel = "web"
	ChannelMobile BookingChannel = "mobile"
	ChannelPOS    BookingChannel = "pos"
	ChannelUSSD   BookingChannel = "ussd"
	ChannelAPI    BookingChannel = "api"
)

// Booking represents one passenger-seat reservation on one trip.
//
// Core invariant: at most one non-cancelled booking exists per
// (trip_id, seat_number) pair. The seat claim in database.TripRepository is
// the sole gate enforcing it.
type Booking struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code    string             `bson:"code" json:"code"`
	TripID  primitive.ObjectID `bson:"trip_id" json:"tripId"`
	RouteID primitive.ObjectID `bson:"route_id" json:"routeId"`

	FromStopID   string `bson:"from_stop_id" json:"fromStopId"`
	ToStopID     string `bson:"to_stop_id" json:"toStopId"`
	FromStopName string `bson:"from_stop_name" json:"fromStopName"`
	ToStopName   string `bson:"to_stop_name" json:"toStopName"`

	PassengerName     string `bson:"passenger_name" json:"passengerName"`
	PassengerPhone    string `bson:"passenger_phone" json:"passengerPhone"`
	PassengerEmail    string `bson:"passenger_email,omitempty" json:"passengerEmail,omitempty"`
	PassengerIDNumber string `bson:"passenger_id_number,omitempty" json:"passengerIdNumber,omitempty"`

	SeatNumber string `bson:"seat_number" json:"seatNumber"`

	// Fare breakdown, all in minor currency units. Never floating point.
	BaseFare    int64    `bson:"base_fare" json:"baseFare"`
	Discount    int64    `bson:"discount" json:"discount"`
	TaxAmount   int64    `bson:"tax_amount" json:"taxAmount"`
	TotalAmount int64    `bson:"total_amount" json:"totalAmount"`
	FareTier    FareTier `bson:"fare_tier" json:"fareTier"`
	Currency    string   `bson:"currency" json:"currency"`

	PaymentStatus    PaymentStatus `bson:"payment_status" json:"paymentStatus"`
	PaymentMethod    string        `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	PaymentReference string        `bson:"payment_reference,omitempty" json:"paymentReference,omitempty"`
	PaidAt           *time.Time    `bson:"paid_at,omitempty" json:"paidAt,omitempty"`

	Status  BookingStatus  `bson:"status" json:"status"`
	Channel BookingChannel `bson:"channel" json:"channel"`

	BookedBy     string `bson:"booked_by,omitempty" json:"bookedBy,omitempty"`
	BookedByRole string `bson:"booked_by_role,omitempty" json:"bookedByRole,omitempty"`

	CancelledAt        *time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy        string     `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`
	CancellationReason string     `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	RefundAmount       int64      `bson:"refund_amount" json:"refundAmount"`

	TicketID *primitive.ObjectID `bson:"ticket_id,omitempty" json:"ticketId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// CreateBookingRequest is the payload for creating a booking.
type CreateBookingRequest struct {
	TripID            string         `json:"tripId" binding:"required"`
	FromStopID        string         `json:"fromStopId" binding:"required"`
	ToStopID          string         `json:"toStopId" binding:"required"`
	SeatNumber        string         `json:"seatNumber" binding:"required"`
	PassengerName     string         `json:"passengerName" binding:"required"`
	PassengerPhone    string         `json:"passengerPhone" binding:"required"`
	PassengerEmail    string         `json:"passengerEmail"`
	PassengerIDNumber string         `json:"passengerIdNumber"`
	Discount          int64          `json:"discount"`
	Channel           BookingChannel `json:"channel"`
	BookedBy          string         `json:"bookedBy"`
	BookedByRole      string         `json:"bookedByRole"`
}

// Validate performs request-level validation before any storage work.
func (r *CreateBookingRequest) Validate() error {
	if strings.TrimSpace(r.SeatNumber) == "" {
		return fmt.Errorf("seat number is required")
	}
	if strings.TrimSpace(r.PassengerName) == "" {
		return fmt.Errorf("passenger name is required")
	}
	if !ValidPhone(r.PassengerPhone) {
		return fmt.Errorf("invalid passenger phone number: %s", r.PassengerPhone)
	}
	if r.Discount < 0 {
		return fmt.Errorf("discount cannot be negative")
	}
	switch r.Channel {
	case "", ChannelWeb, ChannelMobile, ChannelPOS, ChannelUSSD, ChannelAPI:
	default:
		return fmt.Errorf("invalid booking channel: %s", r.Channel)
	}
	return nil
}

// ValidPhone reports whether s looks like a dialable phone number:
// optional leading +, then 9-15 digits.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if len(s) < 9 || len(s) > 15 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
