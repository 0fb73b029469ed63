package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus represents the lifecycle status of a scheduled trip
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusBoarding   TripStatus = "boarding"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
	TripStatusDelayed    TripStatus = "delayed"
)

// TripStop is a stop definition frozen onto the trip at creation time.
// Route stop definitions may change later without affecting existing trips.
type TripStop struct {
	StopID    string  `bson:"stop_id" json:"stopId"`
	Name      string  `bson:"name" json:"name"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Price     *int64  `bson:"price,omitempty" json:"price,omitempty"`
	Order     int     `bson:"order" json:"order"`
}

// Trip represents one scheduled vehicle departure instance.
//
// Invariant: available_seats == total_seats - len(booked_seats). The seat
// fields must only be mutated through the atomic claim/release operations in
// database.TripRepository, never via read-modify-write.
type Trip struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RouteID        primitive.ObjectID  `bson:"route_id" json:"routeId"`
	ScheduleID     *primitive.ObjectID `bson:"schedule_id,omitempty" json:"scheduleId,omitempty"`
	VehicleID      *primitive.ObjectID `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	DriverID       *primitive.ObjectID `bson:"driver_id,omitempty" json:"driverId,omitempty"`
	DepartureDate  time.Time           `bson:"departure_date" json:"departureDate"`
	DepartureTime  string              `bson:"departure_time" json:"departureTime"` // "HH:MM"
	Status         TripStatus          `bson:"status" json:"status"`
	TotalSeats     int                 `bson:"total_seats" json:"totalSeats"`
	AvailableSeats int                 `bson:"available_seats" json:"availableSeats"`
	BookedSeats    []string            `bson:"booked_seats" json:"bookedSeats"`
	Stops          []TripStop          `bson:"stops" json:"stops"`
	Passengers     int                 `bson:"passengers" json:"passengers"`
	Revenue        int64               `bson:"revenue" json:"revenue"` // minor currency units
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updatedAt"`
}

// DepartureAt combines the departure date with the "HH:MM" departure time.
func (t *Trip) DepartureAt() (time.Time, error) {
	parsed, err := time.Parse("15:04", t.DepartureTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure time %q: %w", t.DepartureTime, err)
	}
	d := t.DepartureDate
	return time.Date(d.Year(), d.Month(), d.Day(), parsed.Hour(), parsed.Minute(), 0, 0, d.Location()), nil
}

// FindStop returns the trip's frozen stop definition for the given stop id.
func (t *Trip) FindStop(stopID string) *TripStop {
	for i := range t.Stops {
		if t.Stops[i].StopID == stopID {
			return &t.Stops[i]
		}
	}
	return nil
}
