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

// FareMatrixRepository handles fare-matrix lookups. Matrices are authored
// elsewhere; this service only consumes the active one.
type FareMatrixRepository struct {
	coll *mongo.Collection
}

// NewFareMatrixRepository creates a new FareMatrixRepository
func NewFareMatrixRepository(db *mongo.Database) *FareMatrixRepository {
	return &FareMatrixRepository{coll: db.Collection(CollFareMatrices)}
}

// GetActiveByRoute returns the matrix whose effective window covers at, with
// the most recent effective_from winning on overlap. Returns nil when no
// matrix is active.
func (r *FareMatrixRepository) GetActiveByRoute(ctx context.Context, routeID primitive.ObjectID, at time.Time) (*models.FareMatrix, error) {
	filter := bson.M{
		"route_id":       routeID,
		"effective_from": bson.M{"$lte": at},
		"$or": bson.A{
			bson.M{"effective_to": nil},
			bson.M{"effective_to": bson.M{"$exists": false}},
			bson.M{"effective_to": bson.M{"$gte": at}},
		},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "effective_from", Value: -1}})

	var matrix models.FareMatrix
	err := r.coll.FindOne(ctx, filter, opts).Decode(&matrix)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active fare matrix: %w", err)
	}
	return &matrix, nil
}
