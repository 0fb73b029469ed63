package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/models"
)

// RouteStore provides read-only route and branch lookups.
type RouteStore interface {
	GetRouteByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error)
	GetBranchByID(ctx context.Context, id primitive.ObjectID) (*models.Branch, error)
}

// FareMatrixStore provides the active fare matrix for a route.
type FareMatrixStore interface {
	GetActiveByRoute(ctx context.Context, routeID primitive.ObjectID, at time.Time) (*models.FareMatrix, error)
}

// PricingService resolves fares through a strict priority cascade:
// explicit stop price → matrix entry → fare rule → reverse matrix entry →
// bidirectional base price. First match wins; a lower tier is never
// consulted once a higher one applies.
type PricingService struct {
	routes   RouteStore
	matrices FareMatrixStore
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPricingService creates a new PricingService
func NewPricingService(routes RouteStore, matrices FareMatrixStore, logger *logrus.Logger) *PricingService {
	return &PricingService{
		routes:   routes,
		matrices: matrices,
		logger:   logger,
		now:      time.Now,
	}
}

// journeyPoint is a resolved endpoint: either a route stop or a branch used
// directly for origin/destination travel.
type journeyPoint struct {
	id            string
	name          string
	latitude      float64
	longitude     float64
	price         *int64 // explicit fixed price, route stops only
	isOrigin      bool
	isDestination bool
}

// ResolveFare returns the price for a journey on a route between two stops.
// Fails with ROUTE_NOT_FOUND or FARE_NOT_DEFINED; the latter names both
// endpoints so operators can see which pairing lacks pricing.
func (s *PricingService) ResolveFare(ctx context.Context, routeID primitive.ObjectID, fromStopID, toStopID string) (*models.FareQuote, error) {
	if fromStopID == toStopID {
		return &models.FareQuote{Amount: 0, Tier: models.FareTierSameStop}, nil
	}

	route, err := s.routes.GetRouteByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, models.NewBookingError(models.ErrCodeRouteNotFound, "route not found")
	}

	from, err := s.resolvePoint(ctx, route, fromStopID)
	if err != nil {
		return nil, err
	}
	to, err := s.resolvePoint(ctx, route, toStopID)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, s.noFareError(from, to, fromStopID, toStopID)
	}

	// Explicit stop price. Only defined for the leg from the route's
	// nominal origin to a priced stop; it does not generalize to arbitrary
	// pairs.
	if from.isOrigin && to.price != nil {
		return &models.FareQuote{Amount: *to.price, Tier: models.FareTierStopPrice}, nil
	}

	matrix, err := s.matrices.GetActiveByRoute(ctx, routeID, s.now())
	if err != nil {
		return nil, err
	}

	if matrix != nil {
		if entry := matrix.FindEntry(fromStopID, toStopID); entry != nil {
			return &models.FareQuote{Amount: entry.Price, Tier: models.FareTierMatrix}, nil
		}

		if quote := s.evaluateRule(route, matrix, from, to); quote != nil {
			return quote, nil
		}

		// Matrices are treated as symmetric unless a directional entry
		// exists, so the reverse pair is an accepted fallback.
		if entry := matrix.FindEntry(toStopID, fromStopID); entry != nil {
			return &models.FareQuote{Amount: entry.Price, Tier: models.FareTierReverseMatrix}, nil
		}
	}

	// The route base price covers full origin-to-destination travel in
	// either direction.
	if (from.isOrigin && to.isDestination) || (from.isDestination && to.isOrigin) {
		return &models.FareQuote{Amount: route.BasePrice, Tier: models.FareTierBasePrice}, nil
	}

	return nil, s.noFareError(from, to, fromStopID, toStopID)
}

// evaluateRule applies the matrix's fare rule, returning nil when the rule
// does not produce a price for this pair.
func (s *PricingService) evaluateRule(route *models.Route, matrix *models.FareMatrix, from, to *journeyPoint) *models.FareQuote {
	rule := matrix.Rule
	if rule == nil {
		return nil
	}

	switch rule.Type {
	case models.FareRuleFlat:
		return &models.FareQuote{Amount: route.BasePrice, Tier: models.FareTierRuleFlat}

	case models.FareRuleDistance:
		km := haversineKm(from.latitude, from.longitude, to.latitude, to.longitude)
		amount := rule.BaseRate + int64(math.Round(float64(rule.PerKmRate)*km))
		return &models.FareQuote{Amount: amount, Tier: models.FareTierRuleDistance}

	case models.FareRuleZone:
		for i := range rule.Zones {
			zone := &rule.Zones[i]
			if zone.IntraCityPrice == nil {
				continue
			}
			if zoneContains(zone, from.id) && zoneContains(zone, to.id) {
				return &models.FareQuote{Amount: *zone.IntraCityPrice, Tier: models.FareTierRuleZone}
			}
		}
	}
	return nil
}

// resolvePoint resolves a stop id against the route's stops, falling back to
// branch records for direct origin/destination travel. Returns nil when the
// id matches neither.
func (s *PricingService) resolvePoint(ctx context.Context, route *models.Route, stopID string) (*journeyPoint, error) {
	if stop := route.FindStop(stopID); stop != nil {
		return &journeyPoint{
			id:            stop.StopID,
			name:          stop.Name,
			latitude:      stop.Latitude,
			longitude:     stop.Longitude,
			price:         stop.Price,
			isOrigin:      stopID == route.OriginBranchID.Hex(),
			isDestination: stopID == route.DestinationBranchID.Hex(),
		}, nil
	}

	branchID, err := primitive.ObjectIDFromHex(stopID)
	if err != nil {
		return nil, nil
	}
	branch, err := s.routes.GetBranchByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, nil
	}
	return &journeyPoint{
		id:            stopID,
		name:          branch.Name,
		latitude:      branch.Latitude,
		longitude:     branch.Longitude,
		isOrigin:      branchID == route.OriginBranchID,
		isDestination: branchID == route.DestinationBranchID,
	}, nil
}

// noFareError names both endpoints so the message is actionable for whoever
// configures pricing. Unresolvable ids fall back to the raw value.
func (s *PricingService) noFareError(from, to *journeyPoint, fromStopID, toStopID string) error {
	fromName := fromStopID
	if from != nil {
		fromName = from.name
	}
	toName := toStopID
	if to != nil {
		toName = to.name
	}
	return models.NewBookingError(models.ErrCodeFareNotDefined,
		"no fare defined for journey from %s to %s", fromName, toName)
}

// BranchName resolves a branch id to its display name. Used when a journey
// endpoint is a branch rather than one of the trip's intermediate stops.
func (s *PricingService) BranchName(ctx context.Context, stopID string) (string, error) {
	branchID, err := primitive.ObjectIDFromHex(stopID)
	if err != nil {
		return "", nil
	}
	branch, err := s.routes.GetBranchByID(ctx, branchID)
	if err != nil {
		return "", err
	}
	if branch == nil {
		return "", nil
	}
	return branch.Name, nil
}

func zoneContains(zone *models.FareZone, stopID string) bool {
	for _, id := range zone.StopIDs {
		if id == stopID {
			return true
		}
	}
	return false
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance in kilometers between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
