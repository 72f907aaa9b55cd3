package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Medicine struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Price           float64            `bson:"price" json:"price"`
	DiscountEnabled bool               `bson:"discountEnabled" json:"discountEnabled"`
	DiscountPrice   float64            `bson:"discountPrice" json:"discountPrice"`
	IsDiscounted    bool               `bson:"-" json:"isDiscounted"`
	Category        StringList         `bson:"category" json:"category"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Barcode         string             `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Brand           string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Generic         string             `bson:"generic,omitempty" json:"generic,omitempty"`
	Dosage          string             `bson:"dosage,omitempty" json:"dosage,omitempty"`
	ImagePath       string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	SellerID        primitive.ObjectID `bson:"sellerId,omitempty" json:"sellerId,omitempty"`
	Stock           int                `bson:"stock" json:"stock"`
	InStock         bool               `bson:"-" json:"inStock"`
	RequiresRx      bool               `bson:"requiresRx" json:"requiresRx"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	IsFeatured      bool               `bson:"isFeatured" json:"isFeatured"`
	IsDeleted       bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt       *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
