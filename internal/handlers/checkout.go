package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"backend/internal/checkout"
	"backend/internal/middleware"
	"backend/internal/models"
)

// POST /checkout
// Runs the whole checkout flow in one request: load the cart, validate
// the delivery details, fan the orders out and answer with the receipt.
func SubmitCheckout(db *mongo.Database, orchestrator *checkout.Orchestrator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var info checkout.ContactInfo
		if err := c.ShouldBindJSON(&info); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		lookupCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(lookupCtx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		identity := &checkout.Identity{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		}

		session := orchestrator.Begin(c.Request.Context(), userID)
		result, err := orchestrator.Submit(c.Request.Context(), session, info, identity)
		if err != nil {
			var validationErr *checkout.ValidationError
			var submitErr *checkout.SubmitError

			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			case errors.As(err, &validationErr):
				c.JSON(http.StatusBadRequest, gin.H{
					"error": validationErr.Message,
					"field": validationErr.Field,
				})
			case errors.As(err, &submitErr):
				body := gin.H{
					"error":  "some orders could not be placed",
					"placed": submitErr.Placed,
					"failed": submitErr.Failed,
				}
				if result != nil && result.Record != nil {
					body["order"] = result.Record
				}
				c.JSON(http.StatusBadGateway, body)
			default:
				logger.Error("checkout submit failed",
					zap.String("userId", userID.Hex()), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "order placed",
			"order":   result.Record,
		})
	}
}
