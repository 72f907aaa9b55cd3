package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/cart"
	"backend/internal/models"
)

type memoryCartRepository struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]*models.Cart
}

func newMemoryCartRepository() *memoryCartRepository {
	return &memoryCartRepository{carts: make(map[primitive.ObjectID]*models.Cart)}
}

func (r *memoryCartRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.carts[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	clone := *stored
	clone.Items = append([]models.CartLineItem(nil), stored.Items...)
	return &clone, nil
}

func (r *memoryCartRepository) Upsert(_ context.Context, c *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	clone.Items = append([]models.CartLineItem(nil), c.Items...)
	clone.UpdatedAt = time.Now()
	r.carts[c.UserID] = &clone
	return nil
}

func (r *memoryCartRepository) Delete(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func newCartTestRouter(t *testing.T, userID primitive.ObjectID) (*gin.Engine, *cart.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cart.NewStore(newMemoryCartRepository(), nil, cart.NewNotifier(), zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("role", models.RoleCustomer)
	})
	r.GET("/cart", GetCart(store))
	r.PATCH("/cart/items/:medicineId", UpdateCartItem(store, zap.NewNop()))
	r.DELETE("/cart/items/:medicineId", RemoveCartItem(store, zap.NewNop()))
	r.DELETE("/cart", ClearCart(store, zap.NewNop()))

	return r, store
}

type cartBody struct {
	Items      []models.CartLineItem `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPrice float64               `json:"totalPrice"`
}

func TestGetCartReturnsEmptyCartForNewUser(t *testing.T) {
	userID := primitive.NewObjectID()
	r, _ := newCartTestRouter(t, userID)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Items)
	assert.Zero(t, body.TotalItems)
	assert.Zero(t, body.TotalPrice)
}

func TestUpdateCartItemQuantity(t *testing.T) {
	userID := primitive.NewObjectID()
	r, store := newCartTestRouter(t, userID)

	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, userID, models.CartLineItem{
		MedicineID: "med-1", Name: "Napa Extra", Price: 8.5, Quantity: 1,
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/cart/items/med-1", strings.NewReader(`{"quantity":4}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.TotalItems)
	assert.InDelta(t, 34.0, body.TotalPrice, 0.001)
}

func TestUpdateCartItemUnknownMedicineIDReturnsNotFound(t *testing.T) {
	userID := primitive.NewObjectID()
	r, store := newCartTestRouter(t, userID)

	require.NoError(t, store.AddItem(context.Background(), userID, models.CartLineItem{
		MedicineID: "med-1", Name: "Napa Extra", Price: 8.5, Quantity: 1,
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/cart/items/med-9", strings.NewReader(`{"quantity":4}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveCartItemDropsOnlyThatItem(t *testing.T) {
	userID := primitive.NewObjectID()
	r, store := newCartTestRouter(t, userID)

	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, userID, models.CartLineItem{
		MedicineID: "med-1", Name: "Napa Extra", Price: 8.5, Quantity: 2,
	}))
	require.NoError(t, store.AddItem(ctx, userID, models.CartLineItem{
		MedicineID: "med-2", Name: "Seclo 20", Price: 12.0, Quantity: 1,
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/cart/items/med-1", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "med-2", body.Items[0].MedicineID)
	assert.InDelta(t, 12.0, body.TotalPrice, 0.001)
}

func TestClearCartEmptiesEverything(t *testing.T) {
	userID := primitive.NewObjectID()
	r, store := newCartTestRouter(t, userID)

	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, userID, models.CartLineItem{
		MedicineID: "med-1", Name: "Napa Extra", Price: 8.5, Quantity: 2,
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/cart", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, store.TotalItems(ctx, userID))
}

func TestCartEndpointsRejectMissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cart.NewStore(newMemoryCartRepository(), nil, cart.NewNotifier(), zap.NewNop())

	r := gin.New()
	r.GET("/cart", GetCart(store))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
