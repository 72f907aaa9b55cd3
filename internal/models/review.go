package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MedicineID primitive.ObjectID `bson:"medicineId" json:"medicineId"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	UserName   string             `bson:"userName" json:"userName"`
	Rating     int                `bson:"rating" json:"rating"`
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
