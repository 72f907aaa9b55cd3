package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository persists carts. The store is the only caller; handlers never
// touch the persisted document directly.
type Repository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Upsert(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository returns a Repository backed by the carts collection.
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("carts")}
}

func (m *mongoRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart

	filter := bson.M{"userId": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"userId": cart.UserID}
	update := bson.M{"$set": bson.M{
		"userId":    cart.UserID,
		"items":     cart.Items,
		"createdAt": cart.CreatedAt,
		"updatedAt": cart.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
