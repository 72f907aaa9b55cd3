package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

func normalizeMedicineDocument(raw bson.M) (models.Medicine, error) {
	if cat, ok := raw["category"].(string); ok {
		raw["category"] = []string{cat}
	}

	if val, ok := raw["discountEnabled"]; ok {
		switch typed := val.(type) {
		case string:
			raw["discountEnabled"] = typed == "true"
		case bool:
			// already bool, keep as is
		default:
			raw["discountEnabled"] = false
		}
	} else {
		raw["discountEnabled"] = false
	}

	if val, ok := raw["stock"]; ok {
		switch typed := val.(type) {
		case int32:
			raw["stock"] = int(typed)
		case int64:
			raw["stock"] = int(typed)
		case float64:
			raw["stock"] = int(typed)
		case int:
			raw["stock"] = typed
		default:
			raw["stock"] = 0
		}
	} else {
		raw["stock"] = 0
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Medicine{}, err
	}

	var m models.Medicine
	if err := bson.Unmarshal(data, &m); err != nil {
		return models.Medicine{}, err
	}

	m.InStock = m.Stock > 0
	m.IsDiscounted = isMedicineDiscounted(m.Price, m.DiscountEnabled, m.DiscountPrice)

	return m, nil
}

func decodeMedicines(ctx context.Context, cursor *mongo.Cursor) ([]models.Medicine, error) {
	medicines := make([]models.Medicine, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		medicine, err := normalizeMedicineDocument(raw)
		if err != nil {
			return nil, err
		}

		medicines = append(medicines, medicine)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return medicines, nil
}
