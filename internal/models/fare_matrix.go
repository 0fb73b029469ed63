package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FareTier identifies which rule in the fare-resolution cascade produced a
// price, for auditability in logs and error messages.
type FareTier string

const (
	FareTierSameStop      FareTier = "SAME_STOP"
	FareTierStopPrice     FareTier = "STOP_PRICE"
	FareTierMatrix        FareTier = "MATRIX"
	FareTierRuleFlat      FareTier = "RULE_FLAT"
	FareTierRuleDistance  FareTier = "RULE_DISTANCE"
	FareTierRuleZone      FareTier = "RULE_ZONE"
	FareTierReverseMatrix FareTier = "REVERSE_MATRIX"
	FareTierBasePrice     FareTier = "BASE_PRICE"
)

// FareQuote is the ephemeral result of fare resolution. It is never persisted.
type FareQuote struct {
	Amount int64    `json:"amount"` // minor currency units
	Tier   FareTier `json:"tier"`
}

// FareRuleType selects how a fare rule computes prices for stop pairs that
// have no direct matrix entry.
type FareRuleType string

const (
	FareRuleFlat     FareRuleType = "flat"
	FareRuleDistance FareRuleType = "distance"
	FareRuleZone     FareRuleType = "zone"
)

// FareZone groups stops that share intra-city pricing.
type FareZone struct {
	Name           string   `bson:"name" json:"name"`
	StopIDs        []string `bson:"stop_ids" json:"stopIds"`
	IntraCityPrice *int64   `bson:"intra_city_price,omitempty" json:"intraCityPrice,omitempty"`
}

// FareRule is evaluated when a matrix has no direct entry for a stop pair.
type FareRule struct {
	Type      FareRuleType `bson:"type" json:"type"`
	BaseRate  int64        `bson:"base_rate" json:"baseRate"`    // minor units
	PerKmRate int64        `bson:"per_km_rate" json:"perKmRate"` // minor units per km
	Zones     []FareZone   `bson:"zones,omitempty" json:"zones,omitempty"`
}

// FareMatrixEntry is a directional price for one (from, to) stop pair.
type FareMatrixEntry struct {
	FromStopID string `bson:"from_stop_id" json:"fromStopId"`
	ToStopID   string `bson:"to_stop_id" json:"toStopId"`
	Price      int64  `bson:"price" json:"price"`
}

// FareMatrix holds the priced stop pairs for a route within an effective
// window. The active matrix is the one whose window covers now, most recent
// effective_from winning on overlap.
type FareMatrix struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RouteID       primitive.ObjectID `bson:"route_id" json:"routeId"`
	EffectiveFrom time.Time          `bson:"effective_from" json:"effectiveFrom"`
	EffectiveTo   *time.Time         `bson:"effective_to,omitempty" json:"effectiveTo,omitempty"`
	Entries       []FareMatrixEntry  `bson:"entries" json:"entries"`
	Rule          *FareRule          `bson:"rule,omitempty" json:"rule,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// FindEntry returns the direct (from, to) entry, or nil.
func (m *FareMatrix) FindEntry(fromStopID, toStopID string) *FareMatrixEntry {
	for i := range m.Entries {
		if m.Entries[i].FromStopID == fromStopID && m.Entries[i].ToStopID == toStopID {
			return &m.Entries[i]
		}
	}
	return nil
}
