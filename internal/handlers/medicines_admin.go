package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
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

/* =======================
   REQUEST MODELS
======================= */

type MedicineUpdateRequest struct {
	Name            *string   `json:"name"`
	Price           *float64  `json:"price"`
	DiscountEnabled *bool     `json:"discountEnabled"`
	DiscountPrice   *float64  `json:"discountPrice"`
	CategoryIDs     *[]string `json:"category_id"`
	Description     *string   `json:"description"`
	Barcode         *string   `json:"barcode"`
	Brand           *string   `json:"brand"`
	Generic         *string   `json:"generic"`
	Dosage          *string   `json:"dosage"`
	Stock           *int      `json:"stock"`
	InStock         *bool     `json:"inStock"`
	RequiresRx      *bool     `json:"requiresRx"`
	IsActive        *bool     `json:"isActive"`
	IsFeatured      *bool     `json:"isFeatured"`
}

/* =======================
   HELPERS
======================= */

func normalizeCategories(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)

	for _, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func resolveCategoryNamesByIDs(ctx context.Context, db *mongo.Database, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("category_id required")
	}

	seen := map[primitive.ObjectID]struct{}{}
	ordered := make([]primitive.ObjectID, 0, len(ids))

	for _, raw := range ids {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		objectID, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, fmt.Errorf("invalid category_id: %s", value)
		}
		if _, ok := seen[objectID]; ok {
			continue
		}
		seen[objectID] = struct{}{}
		ordered = append(ordered, objectID)
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("category_id required")
	}

	cursor, err := db.Collection("categories").Find(ctx, bson.M{"_id": bson.M{"$in": ordered}})
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}

	nameByID := make(map[primitive.ObjectID]string, len(categories))
	for _, category := range categories {
		nameByID[category.ID] = category.Name
	}

	names := make([]string, 0, len(ordered))
	for _, objectID := range ordered {
		name, ok := nameByID[objectID]
		if !ok {
			return nil, fmt.Errorf("category not found: %s", objectID.Hex())
		}
		names = append(names, name)
	}

	return names, nil
}

func mapKeys(input map[string]interface{}) []string {
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sellerScope narrows the filter to the caller's own medicines unless the
// caller is an admin.
func sellerScope(c *gin.Context, filter bson.M) bson.M {
	role := c.GetString("role")
	if role == models.RoleAdmin {
		return filter
	}
	if userID, ok := middleware.UserID(c); ok {
		filter["sellerId"] = userID
	}
	return filter
}

/* =======================
   GET (SELLER/ADMIN) – LIST
======================= */

func GetAllMedicines(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(
			c.Query("page"),
			c.Query("limit"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := bson.M{
			"isDeleted": bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = bson.M{"$in": []string{category}}
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"brand": bson.M{"$regex": search, "$options": "i"}},
				{"generic": bson.M{"$regex": search, "$options": "i"}},
				{"barcode": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		if isActive := strings.TrimSpace(c.Query("isActive")); isActive != "" {
			filter["isActive"] = strings.EqualFold(isActive, "true")
		}

		filter = sellerScope(c, filter)

		ctx := context.Background()

		total, err := db.Collection("medicines").CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("medicines").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		medicines, err := decodeMedicines(ctx, cursor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": medicines,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

/* =======================
   CREATE
======================= */

func CreateMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Println("CreateMedicine: request received")
		log.Println("CreateMedicine content-type:", c.GetHeader("Content-Type"))
		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "multipart/form-data required"})
			return
		}

		sellerID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		input, err := parseMultipartMedicineRequest(c)
		if err != nil {
			log.Println("CreateMedicine multipart error:", err)
			respondMultipartError(c, err)
			return
		}

		name := strings.TrimSpace(input.Name)
		if !input.NameSet || name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}

		if !input.PriceSet || input.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}

		discountEnabled := false
		if input.DiscountEnabledSet {
			discountEnabled = input.DiscountEnabled
		}
		discountPrice := 0.0
		if input.DiscountPriceSet {
			discountPrice = input.DiscountPrice
		}

		if err := validateDiscountFields(input.Price, discountEnabled, discountPrice, input.DiscountPriceSet); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !input.CategoryIDSet {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category_id required"})
			return
		}

		categoryNames, err := resolveCategoryNamesByIDs(context.Background(), db, input.CategoryIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		categories := normalizeCategories(categoryNames)

		if !input.StockSet {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock required"})
			return
		}

		if input.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
			return
		}

		if !input.ImageSet || strings.TrimSpace(input.ImagePath) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image required"})
			return
		}

		isActive := true
		if input.IsActiveSet {
			isActive = input.IsActive
		}

		isFeatured := false
		if input.IsFeaturedSet {
			isFeatured = input.IsFeatured
		}

		now := time.Now()
		medicine := models.Medicine{
			Name:            name,
			Price:           input.Price,
			DiscountEnabled: discountEnabled,
			DiscountPrice:   discountPrice,
			IsDiscounted:    isMedicineDiscounted(input.Price, discountEnabled, discountPrice),
			Category:        models.StringList(categories),
			Description:     strings.TrimSpace(input.Description),
			Barcode:         strings.TrimSpace(input.Barcode),
			Brand:           strings.TrimSpace(input.Brand),
			Generic:         strings.TrimSpace(input.Generic),
			Dosage:          strings.TrimSpace(input.Dosage),
			ImagePath:       input.ImagePath,
			SellerID:        sellerID,
			Stock:           input.Stock,
			InStock:         input.Stock > 0,
			RequiresRx:      input.RequiresRxSet && input.RequiresRx,
			IsActive:        isActive,
			IsFeatured:      isFeatured,
			IsDeleted:       false,
			CreatedAt:       now,
		}

		res, err := db.Collection("medicines").InsertOne(context.Background(), medicine)
		if err != nil {
			log.Println("CreateMedicine insert error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		medicine.ID = res.InsertedID.(primitive.ObjectID)
		log.Println("CreateMedicine insert success:", res.InsertedID)
		c.JSON(http.StatusCreated, medicine)
	}
}

/* =======================
   UPDATE
======================= */

func UpdateMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		log.Println("UpdateMedicine request received for id:", id.Hex())

		removeImage := false
		if removeRaw := strings.TrimSpace(c.Query("removeImage")); removeRaw != "" {
			parsedRemove, err := strconv.ParseBool(removeRaw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "removeImage must be boolean"})
				return
			}
			removeImage = parsedRemove
		}

		matchFilter := sellerScope(c, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		})

		var existing models.Medicine
		err = db.Collection("medicines").FindOne(context.Background(), matchFilter).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}
		if err != nil {
			log.Println("UpdateMedicine find error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		existingImagePath := strings.TrimSpace(existing.ImagePath)

		updateSet := bson.M{}
		updateUnset := bson.M{}
		var discountInput discountUpdateInput
		var replacedImagePath string

		if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			input, err := parseMultipartMedicineRequest(c)
			if err != nil {
				log.Println("UpdateMedicine multipart error:", err)
				respondMultipartError(c, err)
				return
			}

			if input.NameSet {
				name := strings.TrimSpace(input.Name)
				if name == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
					return
				}
				updateSet["name"] = name
			}
			if input.PriceSet {
				if input.Price <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
					return
				}
				updateSet["price"] = input.Price
				discountInput.Price = &input.Price
			}
			if input.DiscountEnabledSet {
				discountInput.DiscountEnabled = &input.DiscountEnabled
			}
			if input.DiscountPriceSet {
				discountInput.DiscountPrice = &input.DiscountPrice
			}
			if input.CategoryIDSet {
				categoryNames, err := resolveCategoryNamesByIDs(context.Background(), db, input.CategoryIDs)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				updateSet["category"] = models.StringList(normalizeCategories(categoryNames))
			}
			if input.DescriptionSet {
				updateSet["description"] = strings.TrimSpace(input.Description)
			}
			if input.BarcodeSet {
				barcode := strings.TrimSpace(input.Barcode)
				if barcode == "" {
					updateUnset["barcode"] = ""
				} else {
					updateSet["barcode"] = barcode
				}
			}
			if input.BrandSet {
				updateSet["brand"] = strings.TrimSpace(input.Brand)
			}
			if input.GenericSet {
				updateSet["generic"] = strings.TrimSpace(input.Generic)
			}
			if input.DosageSet {
				updateSet["dosage"] = strings.TrimSpace(input.Dosage)
			}
			if input.ImageSet && strings.TrimSpace(input.ImagePath) != "" {
				updateSet["imagePath"] = input.ImagePath
			} else if removeImage {
				updateUnset["imagePath"] = ""
			}
			if input.StockSet {
				if input.Stock < 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
					return
				}
				updateSet["stock"] = input.Stock
				updateSet["inStock"] = input.Stock > 0
			}
			if input.RequiresRxSet {
				updateSet["requiresRx"] = input.RequiresRx
			}
			if input.IsActiveSet {
				updateSet["isActive"] = input.IsActive
			}
			if input.IsFeaturedSet {
				updateSet["isFeatured"] = input.IsFeatured
			}

			if input.ImageSet && existingImagePath != "" && existingImagePath != input.ImagePath {
				replacedImagePath = existingImagePath
			}
		} else {
			body, err := c.GetRawData()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}

			var raw map[string]interface{}
			if err := json.Unmarshal(body, &raw); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
			if val, ok := raw["discountEnabled"]; ok {
				if _, ok := val.(bool); !ok {
					c.JSON(http.StatusBadRequest, gin.H{"error": "discountEnabled must be boolean"})
					return
				}
			}
			if val, ok := raw["isFeatured"]; ok {
				if _, ok := val.(bool); !ok {
					c.JSON(http.StatusBadRequest, gin.H{"error": "isFeatured must be boolean"})
					return
				}
			}

			var req MedicineUpdateRequest
			if err := json.Unmarshal(body, &req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}

			if req.Name != nil {
				name := strings.TrimSpace(*req.Name)
				if name == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
					return
				}
				updateSet["name"] = name
			}
			if req.Price != nil {
				if *req.Price <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
					return
				}
				updateSet["price"] = *req.Price
				discountInput.Price = req.Price
			}
			if req.DiscountEnabled != nil {
				discountInput.DiscountEnabled = req.DiscountEnabled
			}
			if req.DiscountPrice != nil {
				discountInput.DiscountPrice = req.DiscountPrice
			}
			if req.CategoryIDs != nil {
				categoryNames, err := resolveCategoryNamesByIDs(context.Background(), db, *req.CategoryIDs)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				updateSet["category"] = models.StringList(normalizeCategories(categoryNames))
			}
			if req.Description != nil {
				updateSet["description"] = strings.TrimSpace(*req.Description)
			}
			if req.Barcode != nil {
				barcode := strings.TrimSpace(*req.Barcode)
				if barcode == "" {
					updateUnset["barcode"] = ""
				} else {
					updateSet["barcode"] = barcode
				}
			}
			if req.Brand != nil {
				updateSet["brand"] = strings.TrimSpace(*req.Brand)
			}
			if req.Generic != nil {
				updateSet["generic"] = strings.TrimSpace(*req.Generic)
			}
			if req.Dosage != nil {
				updateSet["dosage"] = strings.TrimSpace(*req.Dosage)
			}
			if req.Stock != nil {
				if *req.Stock < 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
					return
				}
				updateSet["stock"] = *req.Stock
				updateSet["inStock"] = *req.Stock > 0
			} else if req.InStock != nil {
				updateSet["inStock"] = *req.InStock
			}
			if req.RequiresRx != nil {
				updateSet["requiresRx"] = *req.RequiresRx
			}
			if req.IsActive != nil {
				updateSet["isActive"] = *req.IsActive
			}
			if req.IsFeatured != nil {
				updateSet["isFeatured"] = *req.IsFeatured
			}
			if removeImage {
				updateUnset["imagePath"] = ""
			}
		}

		discountUpdate, err := resolveDiscountUpdate(existing.Price, existing.DiscountEnabled, existing.DiscountPrice, discountInput)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if discountUpdate.SetDiscountEnabled {
			updateSet["discountEnabled"] = discountUpdate.DiscountEnabled
		}
		if discountUpdate.SetDiscountPrice {
			updateSet["discountPrice"] = discountUpdate.DiscountPrice
		}

		if len(updateSet) == 0 && len(updateUnset) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		update := bson.M{}
		if len(updateSet) > 0 {
			update["$set"] = updateSet
		}
		if len(updateUnset) > 0 {
			update["$unset"] = updateUnset
		}
		log.Printf(
			"UpdateMedicine update fields: set=%v unset=%v",
			mapKeys(updateSet),
			mapKeys(updateUnset),
		)

		result, err := db.Collection("medicines").UpdateOne(context.Background(), matchFilter, update)
		if err != nil {
			log.Println("UpdateMedicine update error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if result.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}

		if replacedImagePath != "" {
			if err := safeDeleteUpload(replacedImagePath); err != nil {
				log.Printf("UpdateMedicine old image delete failed: %v", err)
			}
		} else if removeImage && existingImagePath != "" {
			if err := safeDeleteUpload(existingImagePath); err != nil {
				log.Printf("UpdateMedicine removeImage delete failed: %v", err)
			}
		}

		var updated models.Medicine
		err = db.Collection("medicines").FindOne(context.Background(), matchFilter).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}
		if err != nil {
			log.Println("UpdateMedicine find error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated.InStock = updated.Stock > 0
		updated.IsDiscounted = isMedicineDiscounted(updated.Price, updated.DiscountEnabled, updated.DiscountPrice)
		c.JSON(http.StatusOK, updated)
	}
}

/* =======================
   DELETE (SOFT)
======================= */

func DeleteMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		matchFilter := sellerScope(c, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		})

		var existing models.Medicine
		err = db.Collection("medicines").FindOne(context.Background(), matchFilter).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		res, err := db.Collection("medicines").UpdateOne(
			context.Background(),
			matchFilter,
			bson.M{"$set": bson.M{
				"isDeleted": true,
				"deletedAt": time.Now(),
				"isActive":  false,
			}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}

		if err := safeDeleteUpload(existing.ImagePath); err != nil {
			log.Printf("DeleteMedicine image delete failed: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "medicine deleted"})
	}
}
