package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/swifttransit/booking-backend/internal/models"
)

// RouteRepository handles route and branch lookups. Both are read-only for
// this service; authoring happens elsewhere.
type RouteRepository struct {
	routes   *mongo.Collection
	branches *mongo.Collection
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db *mongo.Database) *RouteRepository {
	return &RouteRepository{
		routes:   db.Collection(CollRoutes),
		branches: db.Collection(CollBranches),
	}
}

// GetRouteByID returns the route, or nil if it does not exist.
func (r *RouteRepository) GetRouteByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error) {
	var route models.Route
	err := r.routes.FindOne(ctx, bson.M{"_id": id}).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// GetBranchByID returns the branch, or nil if it does not exist.
func (r *RouteRepository) GetBranchByID(ctx context.Context, id primitive.ObjectID) (*models.Branch, error) {
	var branch models.Branch
	err := r.branches.FindOne(ctx, bson.M{"_id": id}).Decode(&branch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}
