package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// A cancelled request must abort the admin order listing right away
// instead of waiting out server selection against an unreachable
// database.
func TestGetAllOrdersHonorsRequestCancellation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(30*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})

	r := gin.New()
	r.GET("/admin/orders", GetAllOrders(client.Database("pharmacy_test")))

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/admin/orders", nil).WithContext(reqCtx)

	start := time.Now()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Less(t, time.Since(start), 5*time.Second)
}
