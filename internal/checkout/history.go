package checkout

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// HistoryRepository appends checkout receipts. Records are never updated
// or deleted by the orchestrator.
type HistoryRepository interface {
	Insert(ctx context.Context, record *models.OrderHistoryRecord) error
}

type mongoHistoryRepository struct {
	collection *mongo.Collection
}

func NewMongoHistoryRepository(db *mongo.Database) HistoryRepository {
	return &mongoHistoryRepository{collection: db.Collection("order_history")}
}

func (m *mongoHistoryRepository) Insert(ctx context.Context, record *models.OrderHistoryRecord) error {
	if _, err := m.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert order history record: %w", err)
	}
	return nil
}
