package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	HistoryStatusPending = "pending"
	HistoryStatusPartial = "partial"
)

// HistoryCustomer snapshots the delivery contact and identity used for a
// checkout. It is stored with the receipt and never updated afterwards.
type HistoryCustomer struct {
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
}

// BackendOrder is the representation of an order created on the external
// pharmacy order API, kept verbatim from the API response.
type BackendOrder struct {
	OrderID    string  `bson:"orderId" json:"orderId"`
	MedicineID string  `bson:"medicineId" json:"medicineId"`
	Quantity   int     `bson:"quantity" json:"quantity"`
	Status     string  `bson:"status" json:"status"`
	Total      float64 `bson:"total,omitempty" json:"total,omitempty"`
}

// FailedOrderItem records a line item whose order-creation call failed,
// together with the server's message.
type FailedOrderItem struct {
	MedicineID string `bson:"medicineId" json:"medicineId"`
	Name       string `bson:"name" json:"name"`
	Reason     string `bson:"reason" json:"reason"`
}

// OrderHistoryRecord is the customer-side receipt of a checkout attempt.
// Records are append-only: this service never mutates one after insert,
// and the status field is not synced with the external API afterwards.
type OrderHistoryRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID       string             `bson:"orderId" json:"orderId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Items         []CartLineItem     `bson:"items" json:"items"`
	Customer      HistoryCustomer    `bson:"customer" json:"customer"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingFee   float64            `bson:"shippingFee" json:"shippingFee"`
	OrderDate     time.Time          `bson:"orderDate" json:"orderDate"`
	Status        string             `bson:"status" json:"status"`
	BackendOrders []BackendOrder     `bson:"backendOrders" json:"backendOrders"`
	FailedItems   []FailedOrderItem  `bson:"failedItems,omitempty" json:"failedItems,omitempty"`
}
