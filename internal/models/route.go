package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RouteStop is a stop on a route. A stop may carry an explicit fixed price
// for travel from the route's nominal origin to that stop.
type RouteStop struct {
	StopID    string  `bson:"stop_id" json:"stopId"`
	Name      string  `bson:"name" json:"name"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Price     *int64  `bson:"price,omitempty" json:"price,omitempty"`
	Order     int     `bson:"order" json:"order"`
}

// Route represents a service route between two branches.
type Route struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	OriginBranchID      primitive.ObjectID `bson:"origin_branch_id" json:"originBranchId"`
	DestinationBranchID primitive.ObjectID `bson:"destination_branch_id" json:"destinationBranchId"`
	Stops               []RouteStop        `bson:"stops" json:"stops"`
	BasePrice           int64              `bson:"base_price" json:"basePrice"` // minor currency units
	Active              bool               `bson:"active" json:"active"`
	CreatedAt           time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updatedAt"`
}

// FindStop returns the route stop with the given id, or nil.
func (r *Route) FindStop(stopID string) *RouteStop {
	for i := range r.Stops {
		if r.Stops[i].StopID == stopID {
			return &r.Stops[i]
		}
	}
	return nil
}

// Branch is a terminal/office location. Routes run between branches, and a
// branch id may be used directly as a journey endpoint for origin-to-
// destination travel.
type Branch struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Latitude  float64            `bson:"latitude" json:"latitude"`
	Longitude float64            `bson:"longitude" json:"longitude"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
