package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"backend/internal/cart"
	"backend/internal/middleware"
	"backend/internal/models"
)

type cartAddRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   int    `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func cartResponse(c *models.Cart) gin.H {
	return gin.H{
		"items":      c.Items,
		"totalItems": c.TotalItems(),
		"totalPrice": c.TotalPrice(),
		"updatedAt":  c.UpdatedAt,
	}
}

// GET /cart
func GetCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		current := store.Get(c.Request.Context(), userID)
		c.JSON(http.StatusOK, cartResponse(current))
	}
}

// POST /cart/items
// The line item snapshot (name, price, image) is resolved server side so
// a stale client cannot put arbitrary prices in the cart.
func AddCartItem(db *mongo.Database, store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req cartAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.MedicineID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicineId"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var raw bson.M
		if err := db.Collection("medicines").FindOne(ctx, bson.M{
			"_id":       medicineID,
			"isActive":  bson.M{"$ne": false},
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&raw); err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
				return
			}
			logger.Error("cart add medicine lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		medicine, err := normalizeMedicineDocument(raw)
		if err != nil {
			logger.Error("cart add medicine decode failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		if !medicine.InStock {
			c.JSON(http.StatusConflict, gin.H{"error": "medicine is out of stock"})
			return
		}

		item := models.CartLineItem{
			MedicineID: medicine.ID.Hex(),
			Name:       medicine.Name,
			Price:      effectiveMedicinePrice(medicine.Price, medicine.DiscountEnabled, medicine.DiscountPrice),
			Quantity:   req.Quantity,
			Image:      medicine.ImagePath,
			Brand:      medicine.Brand,
		}

		if err := store.AddItem(ctx, userID, item); err != nil {
			logger.Error("cart add failed",
				zap.String("userId", userID.Hex()),
				zap.String("medicineId", item.MedicineID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update cart"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(store.Get(ctx, userID)))
	}
}

// PATCH /cart/items/:medicineId
func UpdateCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		medicineID := strings.TrimSpace(c.Param("medicineId"))
		if medicineID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicineId"})
			return
		}

		var req cartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		if err := store.UpdateQuantity(c.Request.Context(), userID, medicineID, req.Quantity); err != nil {
			if errors.Is(err, cart.ErrItemNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
				return
			}
			logger.Error("cart quantity update failed",
				zap.String("userId", userID.Hex()),
				zap.String("medicineId", medicineID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update cart"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(store.Get(c.Request.Context(), userID)))
	}
}

// DELETE /cart/items/:medicineId
func RemoveCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		medicineID := strings.TrimSpace(c.Param("medicineId"))
		if medicineID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicineId"})
			return
		}

		if err := store.RemoveItem(c.Request.Context(), userID, medicineID); err != nil {
			logger.Error("cart item removal failed",
				zap.String("userId", userID.Hex()),
				zap.String("medicineId", medicineID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update cart"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(store.Get(c.Request.Context(), userID)))
	}
}

// DELETE /cart
func ClearCart(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := store.Clear(c.Request.Context(), userID); err != nil {
			logger.Error("cart clear failed", zap.String("userId", userID.Hex()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear cart"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}

// GET /cart/events
// Server-sent event stream for the cart badge. The first event carries
// the current totals, later ones follow cart mutations.
func CartEvents(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		events, cancel := store.Notifier().Subscribe(userID)
		defer cancel()

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		current := store.Get(c.Request.Context(), userID)
		c.SSEvent("cart", gin.H{
			"totalItems": current.TotalItems(),
			"totalPrice": current.TotalPrice(),
		})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case event, open := <-events:
				if !open {
					return false
				}
				c.SSEvent("cart", gin.H{
					"totalItems": event.TotalItems,
					"totalPrice": event.TotalPrice,
				})
				return true
			}
		})
	}
}
