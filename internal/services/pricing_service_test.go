package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swifttransit/booking-backend/internal/models"
)

type fakeRouteStore struct {
	route    *models.Route
	branches map[primitive.ObjectID]*models.Branch
}

func (f *fakeRouteStore) GetRouteByID(_ context.Context, id primitive.ObjectID) (*models.Route, error) {
	if f.route != nil && f.route.ID == id {
		return f.route, nil
	}
	return nil, nil
}

func (f *fakeRouteStore) GetBranchByID(_ context.Context, id primitive.ObjectID) (*models.Branch, error) {
	return f.branches[id], nil
}

type fakeMatrixStore struct {
	matrix *models.FareMatrix
}

func (f *fakeMatrixStore) GetActiveByRoute(_ context.Context, _ primitive.ObjectID, _ time.Time) (*models.FareMatrix, error) {
	return f.matrix, nil
}

func intPtr(v int64) *int64 { return &v }

// pricingFixture builds a route Accra -> Kumasi with two intermediate stops.
// Nsawam carries an explicit price from the origin; Suhum has none.
func pricingFixture() (*models.Route, map[primitive.ObjectID]*models.Branch) {
	origin := primitive.NewObjectID()
	destination := primitive.NewObjectID()

	route := &models.Route{
		ID:                  primitive.NewObjectID(),
		Name:                "Accra - Kumasi",
		OriginBranchID:      origin,
		DestinationBranchID: destination,
		BasePrice:           12000,
		Active:              true,
		Stops: []models.RouteStop{
			{StopID: origin.Hex(), Name: "Accra", Latitude: 5.6037, Longitude: -0.1870, Order: 0},
			{StopID: "stop-nsawam", Name: "Nsawam", Latitude: 5.8089, Longitude: -0.3503, Price: intPtr(3000), Order: 1},
			{StopID: "stop-suhum", Name: "Suhum", Latitude: 6.0408, Longitude: -0.4508, Order: 2},
			{StopID: destination.Hex(), Name: "Kumasi", Latitude: 6.6885, Longitude: -1.6244, Order: 3},
		},
	}

	branches := map[primitive.ObjectID]*models.Branch{
		origin:      {ID: origin, Name: "Accra", Latitude: 5.6037, Longitude: -0.1870},
		destination: {ID: destination, Name: "Kumasi", Latitude: 6.6885, Longitude: -1.6244},
	}
	return route, branches
}

func newPricingService(route *models.Route, branches map[primitive.ObjectID]*models.Branch, matrix *models.FareMatrix) *PricingService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewPricingService(
		&fakeRouteStore{route: route, branches: branches},
		&fakeMatrixStore{matrix: matrix},
		logger,
	)
}

func TestResolveFare_SameStopIsFree(t *testing.T) {
	route, branches := pricingFixture()
	svc := newPricingService(route, branches, nil)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-nsawam")
	require.NoError(t, err)
	assert.Equal(t, int64(0), quote.Amount)
	assert.Equal(t, models.FareTierSameStop, quote.Tier)
}

func TestResolveFare_ExplicitStopPriceFromOrigin(t *testing.T) {
	route, branches := pricingFixture()
	svc := newPricingService(route, branches, nil)

	quote, err := svc.ResolveFare(context.Background(), route.ID, route.OriginBranchID.Hex(), "stop-nsawam")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), quote.Amount)
	assert.Equal(t, models.FareTierStopPrice, quote.Tier)
}

func TestResolveFare_StopPriceOnlyAppliesFromOrigin(t *testing.T) {
	route, branches := pricingFixture()
	// No matrix, no rule: a mid-route journey ending at the priced stop has
	// no fare source left.
	svc := newPricingService(route, branches, nil)

	_, err := svc.ResolveFare(context.Background(), route.ID, "stop-suhum", "stop-nsawam")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeFareNotDefined, models.ErrCode(err))
}

func TestResolveFare_MatrixEntry(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Entries: []models.FareMatrixEntry{
			{FromStopID: "stop-nsawam", ToStopID: "stop-suhum", Price: 1500},
		},
	}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), quote.Amount)
	assert.Equal(t, models.FareTierMatrix, quote.Tier)
}

func TestResolveFare_MatrixEntryBeatsRule(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Entries: []models.FareMatrixEntry{
			{FromStopID: "stop-nsawam", ToStopID: "stop-suhum", Price: 1500},
		},
		Rule: &models.FareRule{Type: models.FareRuleFlat},
	}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, models.FareTierMatrix, quote.Tier)
}

func TestResolveFare_FlatRule(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Rule:    &models.FareRule{Type: models.FareRuleFlat},
	}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, route.BasePrice, quote.Amount)
	assert.Equal(t, models.FareTierRuleFlat, quote.Tier)
}

func TestResolveFare_DistanceRule(t *testing.T) {
	route, branches := pricingFixture()
	rule := &models.FareRule{Type: models.FareRuleDistance, BaseRate: 500, PerKmRate: 25}
	matrix := &models.FareMatrix{RouteID: route.ID, Rule: rule}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, models.FareTierRuleDistance, quote.Tier)

	km := haversineKm(5.8089, -0.3503, 6.0408, -0.4508)
	expected := rule.BaseRate + int64(math.Round(float64(rule.PerKmRate)*km))
	assert.Equal(t, expected, quote.Amount)
	assert.Greater(t, quote.Amount, rule.BaseRate)
}

func TestResolveFare_ZoneRule(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Rule: &models.FareRule{
			Type: models.FareRuleZone,
			Zones: []models.FareZone{
				{Name: "Eastern", StopIDs: []string{"stop-nsawam", "stop-suhum"}, IntraCityPrice: intPtr(800)},
			},
		},
	}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, int64(800), quote.Amount)
	assert.Equal(t, models.FareTierRuleZone, quote.Tier)
}

func TestResolveFare_ZoneRuleRequiresBothStopsInZone(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Rule: &models.FareRule{
			Type: models.FareRuleZone,
			Zones: []models.FareZone{
				{Name: "Eastern", StopIDs: []string{"stop-nsawam"}, IntraCityPrice: intPtr(800)},
			},
		},
	}
	svc := newPricingService(route, branches, matrix)

	_, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeFareNotDefined, models.ErrCode(err))
}

func TestResolveFare_ReverseMatrixFallback(t *testing.T) {
	route, branches := pricingFixture()
	matrix := &models.FareMatrix{
		RouteID: route.ID,
		Entries: []models.FareMatrixEntry{
			{FromStopID: "stop-suhum", ToStopID: "stop-nsawam", Price: 1700},
		},
	}
	svc := newPricingService(route, branches, matrix)

	quote, err := svc.ResolveFare(context.Background(), route.ID, "stop-nsawam", "stop-suhum")
	require.NoError(t, err)
	assert.Equal(t, int64(1700), quote.Amount)
	assert.Equal(t, models.FareTierReverseMatrix, quote.Tier)
}

func TestResolveFare_BasePriceBothDirections(t *testing.T) {
	route, branches := pricingFixture()
	svc := newPricingService(route, branches, nil)

	forward, err := svc.ResolveFare(context.Background(), route.ID, route.OriginBranchID.Hex(), route.DestinationBranchID.Hex())
	require.NoError(t, err)
	assert.Equal(t, route.BasePrice, forward.Amount)
	assert.Equal(t, models.FareTierBasePrice, forward.Tier)

	reverse, err := svc.ResolveFare(context.Background(), route.ID, route.DestinationBranchID.Hex(), route.OriginBranchID.Hex())
	require.NoError(t, err)
	assert.Equal(t, route.BasePrice, reverse.Amount)
	assert.Equal(t, models.FareTierBasePrice, reverse.Tier)
}

func TestResolveFare_NoFareNamesBothStops(t *testing.T) {
	route, branches := pricingFixture()
	svc := newPricingService(route, branches, nil)

	_, err := svc.ResolveFare(context.Background(), route.ID, "stop-suhum", "stop-nsawam")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeFareNotDefined, models.ErrCode(err))
	assert.Contains(t, err.Error(), "Suhum")
	assert.Contains(t, err.Error(), "Nsawam")
}

func TestResolveFare_UnknownRoute(t *testing.T) {
	route, branches := pricingFixture()
	svc := newPricingService(route, branches, nil)

	_, err := svc.ResolveFare(context.Background(), primitive.NewObjectID(), "stop-nsawam", "stop-suhum")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeRouteNotFound, models.ErrCode(err))
}

func TestHaversineKm(t *testing.T) {
	// Accra to Kumasi is roughly 200km as the crow flies.
	km := haversineKm(5.6037, -0.1870, 6.6885, -1.6244)
	assert.InDelta(t, 200, km, 15)

	assert.Equal(t, 0.0, haversineKm(5.6037, -0.1870, 5.6037, -0.1870))
}
