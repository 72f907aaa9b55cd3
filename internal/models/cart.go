package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartLineItem is one medicine plus a quantity inside a customer's cart.
// A cart holds at most one line item per medicine id; adding the same
// medicine again increments the quantity instead.
type CartLineItem struct {
	MedicineID string  `bson:"medicineId" json:"medicineId"`
	Name       string  `bson:"name" json:"name"`
	Price      float64 `bson:"price" json:"price"`
	Quantity   int     `bson:"quantity" json:"quantity"`
	Image      string  `bson:"image,omitempty" json:"image,omitempty"`
	Brand      string  `bson:"brand,omitempty" json:"brand,omitempty"`
}

// Cart is the persisted per-customer cart document. Insertion order of
// items is preserved for display; totals are always recomputed from the
// items, never stored.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartLineItem     `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TotalItems sums the quantities over all line items.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums price*quantity over all line items.
func (c *Cart) TotalPrice() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy of the cart. Line items hold only value
// fields, so copying the slice is enough.
func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = make([]CartLineItem, len(c.Items))
	copy(clone.Items, c.Items)
	return &clone
}
