package cart

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

var ErrCacheMiss = errors.New("cart not in cache")

// Cache is a best-effort read cache in front of the repository. Cache
// failures never fail a request; the store falls through to Mongo.
type Cache interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Set(ctx context.Context, userID primitive.ObjectID, cart *models.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}
