package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/middleware"
	"backend/internal/models"
)

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// GET /medicines/:id/reviews
func GetMedicineReviews(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		medicineID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicine id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("reviews").Find(ctx, bson.M{"medicineId": medicineID}, opts)
		if err != nil {
			log.Println("[REVIEW] [ERROR] list reviews failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		reviews := make([]models.Review, 0)
		if err := cursor.All(ctx, &reviews); err != nil {
			log.Println("[REVIEW] [ERROR] decode reviews failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		ratingSum := 0
		for _, review := range reviews {
			ratingSum += review.Rating
		}
		average := 0.0
		if len(reviews) > 0 {
			average = float64(ratingSum) / float64(len(reviews))
		}

		c.JSON(http.StatusOK, gin.H{
			"data":          reviews,
			"count":         len(reviews),
			"averageRating": average,
		})
	}
}

// POST /medicines/:id/reviews
// One review per customer per medicine, a repeat post replaces the old one.
func CreateMedicineReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicine id"})
			return
		}

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("medicines").FindOne(ctx, bson.M{
			"_id":       medicineID,
			"isDeleted": bson.M{"$ne": true},
		}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
				return
			}
			log.Println("[REVIEW] [ERROR] medicine lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		now := time.Now()
		var review models.Review
		err = db.Collection("reviews").FindOneAndUpdate(
			ctx,
			bson.M{"medicineId": medicineID, "userId": userID},
			bson.M{"$set": bson.M{
				"medicineId": medicineID,
				"userId":     userID,
				"userName":   user.Name,
				"rating":     req.Rating,
				"comment":    strings.TrimSpace(req.Comment),
				"createdAt":  now,
			}},
			options.FindOneAndUpdate().
				SetUpsert(true).
				SetReturnDocument(options.After),
		).Decode(&review)
		if err != nil {
			log.Println("[REVIEW] [ERROR] upsert review failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[REVIEW] [INFO] review saved for medicine:", medicineID.Hex())
		c.JSON(http.StatusCreated, review)
	}
}

// DELETE /medicines/:id/reviews
// Removes the caller's own review.
func DeleteMedicineReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicine id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("reviews").DeleteOne(ctx, bson.M{
			"medicineId": medicineID,
			"userId":     userID,
		})
		if err != nil {
			log.Println("[REVIEW] [ERROR] delete review failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
	}
}
