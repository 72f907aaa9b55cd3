package orderapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", 5*time.Second, zap.NewNop())
}

func TestCreateOrderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "med-1", req.MedicineID)
		assert.Equal(t, 2, req.Quantity)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"_id":        "order-42",
				"medicineId": "med-1",
				"quantity":   2,
				"status":     "pending",
			},
		})
	}))
	defer server.Close()

	order, err := newTestClient(server.URL).CreateOrder(context.Background(), OrderRequest{
		Phone:      "01712345678",
		Address:    "House 12, Road 5, Dhanmondi, Dhaka",
		Quantity:   2,
		MedicineID: "med-1",
		AuthorID:   "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "order-42", order.ID)
	assert.Equal(t, "pending", order.Status)
}

func TestCreateOrderServerRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "medicine is out of stock",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateOrder(context.Background(), OrderRequest{MedicineID: "med-1", Quantity: 1})

	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "medicine is out of stock", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestCreateOrderSuccessFalseWithOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "order could not be placed",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateOrder(context.Background(), OrderRequest{MedicineID: "med-1", Quantity: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "order could not be placed")
}

func TestCreateOrderGarbageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateOrder(context.Background(), OrderRequest{MedicineID: "med-1", Quantity: 1})

	require.Error(t, err)
}

func TestNewClientNormalizesBaseURL(t *testing.T) {
	client := NewClient("api.example.com/", "", time.Second, zap.NewNop())
	assert.Equal(t, "https://api.example.com", client.baseURL)

	client = NewClient("http://localhost:5000/", "", time.Second, zap.NewNop())
	assert.Equal(t, "http://localhost:5000", client.baseURL)
}
