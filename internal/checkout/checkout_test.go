package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/models"
	"backend/internal/orderapi"
)

type mockCartStore struct {
	mu   sync.Mutex
	cart *models.Cart
}

func (m *mockCartStore) Get(_ context.Context, userID primitive.ObjectID) *models.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil {
		return &models.Cart{UserID: userID, Items: []models.CartLineItem{}}
	}
	return m.cart
}

func (m *mockCartStore) Save(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = cart
	return nil
}

func (m *mockCartStore) Clear(context.Context, primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = nil
	return nil
}

// mockPlacer fails order creation for medicine ids listed in failFor.
type mockPlacer struct {
	mu      sync.Mutex
	calls   []orderapi.OrderRequest
	failFor map[string]string
}

func (m *mockPlacer) CreateOrder(_ context.Context, order orderapi.OrderRequest) (*orderapi.Order, error) {
	m.mu.Lock()
	m.calls = append(m.calls, order)
	m.mu.Unlock()

	if reason, ok := m.failFor[order.MedicineID]; ok {
		return nil, &orderapi.Error{StatusCode: 500, Message: reason}
	}
	return &orderapi.Order{
		ID:         "srv-" + order.MedicineID,
		MedicineID: order.MedicineID,
		Quantity:   order.Quantity,
		Status:     "pending",
	}, nil
}

func (m *mockPlacer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockHistory struct {
	mu      sync.Mutex
	records []*models.OrderHistoryRecord
	err     error
}

func (m *mockHistory) Insert(_ context.Context, record *models.OrderHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

const testShippingFee = 60.0

func newFixture(items ...models.CartLineItem) (*Orchestrator, *mockCartStore, *mockPlacer, *mockHistory, primitive.ObjectID) {
	userID := primitive.NewObjectID()
	carts := &mockCartStore{}
	if len(items) > 0 {
		carts.cart = &models.Cart{UserID: userID, Items: items}
	}
	placer := &mockPlacer{failFor: map[string]string{}}
	history := &mockHistory{}
	orch := NewOrchestrator(carts, placer, history, testShippingFee, time.Second, zap.NewNop())
	return orch, carts, placer, history, userID
}

func testIdentity() *Identity {
	return &Identity{
		ID:    primitive.NewObjectID(),
		Name:  "Rahim Uddin",
		Email: "rahim@example.com",
		Role:  models.RoleCustomer,
	}
}

func validContact() ContactInfo {
	return ContactInfo{Phone: "01712345678", Address: "House 12, Road 5, Dhanmondi, Dhaka"}
}

func item(id string, price float64, qty int) models.CartLineItem {
	return models.CartLineItem{MedicineID: id, Name: "Medicine " + id, Price: price, Quantity: qty}
}

func TestBeginResolvesEmptyState(t *testing.T) {
	orch, _, _, _, userID := newFixture()

	session := orch.Begin(context.Background(), userID)

	assert.Equal(t, StateEmpty, session.State())
}

func TestBeginResolvesEditingState(t *testing.T) {
	orch, _, _, _, userID := newFixture(item("med-1", 10, 1))

	session := orch.Begin(context.Background(), userID)

	assert.Equal(t, StateEditing, session.State())
	assert.Equal(t, 10.0, session.Subtotal())
}

func TestSubmitOnEmptyCartNeverReachesTheAPI(t *testing.T) {
	orch, _, placer, _, userID := newFixture()

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, placer.callCount())
}

func TestSubmitWithEmptyAddressSendsNoRequests(t *testing.T) {
	orch, _, placer, _, userID := newFixture(item("med-1", 10, 1))

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, ContactInfo{Phone: "01712345678"}, testIdentity())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "address", vErr.Field)
	assert.Zero(t, placer.callCount())
	assert.Equal(t, StateEditing, session.State())
}

func TestSubmitWithMalformedPhoneSendsNoRequests(t *testing.T) {
	orch, _, placer, _, userID := newFixture(item("med-1", 10, 1))

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, ContactInfo{Phone: "12345", Address: "Dhaka"}, testIdentity())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, placer.callCount())
}

func TestSubmitWithoutIdentitySendsNoRequests(t *testing.T) {
	orch, _, placer, _, userID := newFixture(item("med-1", 10, 1))

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, validContact(), nil)

	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, placer.callCount())
}

func TestSubmitFullSuccess(t *testing.T) {
	items := []models.CartLineItem{item("med-1", 8.5, 2), item("med-2", 12, 3)}
	orch, carts, placer, history, userID := newFixture(items...)

	session := orch.Begin(context.Background(), userID)
	result, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	require.NoError(t, err)
	assert.Equal(t, StatePlaced, session.State())
	assert.Equal(t, 2, placer.callCount())

	// Cart is cleared.
	assert.Empty(t, carts.Get(context.Background(), userID).Items)

	// Exactly one receipt, snapshotting the submitted items.
	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Same(t, record, result.Record)
	assert.Equal(t, items, record.Items)
	assert.Equal(t, 8.5*2+12*3+testShippingFee, record.TotalAmount)
	assert.Equal(t, models.HistoryStatusPending, record.Status)
	assert.Len(t, record.BackendOrders, 2)
	assert.NotEmpty(t, record.OrderID)
	assert.Equal(t, userID, record.UserID)
}

func TestSubmitPartialFailureRecordsSuccesses(t *testing.T) {
	items := []models.CartLineItem{
		item("med-1", 10, 1),
		item("med-2", 20, 1),
		item("med-3", 30, 1),
	}
	orch, carts, placer, history, userID := newFixture(items...)
	placer.failFor["med-2"] = "out of stock"

	session := orch.Begin(context.Background(), userID)
	result, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	var subErr *SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 2, subErr.Placed)
	require.Len(t, subErr.Failed, 1)
	assert.Equal(t, "med-2", subErr.Failed[0].MedicineID)
	assert.Equal(t, "out of stock", subErr.Failed[0].Reason)

	// The two created orders are not lost: they are in the receipt.
	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Equal(t, models.HistoryStatusPartial, record.Status)
	assert.Len(t, record.BackendOrders, 2)
	assert.Len(t, record.Items, 2)
	require.Len(t, record.FailedItems, 1)
	assert.Equal(t, "med-2", record.FailedItems[0].MedicineID)
	assert.Equal(t, 10+30+testShippingFee, record.TotalAmount)

	// Only the failed item stays in the cart, so a retry cannot
	// duplicate the orders that went through.
	remaining := carts.Get(context.Background(), userID).Items
	require.Len(t, remaining, 1)
	assert.Equal(t, "med-2", remaining[0].MedicineID)

	assert.Equal(t, StateEditing, session.State())
	assert.Same(t, record, result.Record)
}

func TestSubmitAllFailuresLeavesCartIntact(t *testing.T) {
	items := []models.CartLineItem{item("med-1", 10, 1), item("med-2", 20, 1)}
	orch, carts, _, history, userID := newFixture(items...)
	orch.orders.(*mockPlacer).failFor = map[string]string{
		"med-1": "timeout",
		"med-2": "timeout",
	}

	session := orch.Begin(context.Background(), userID)
	result, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	var subErr *SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Zero(t, subErr.Placed)
	assert.Len(t, subErr.Failed, 2)

	// Nothing succeeded, so there is no receipt and the cart keeps
	// every item.
	assert.Empty(t, history.records)
	assert.Len(t, carts.Get(context.Background(), userID).Items, 2)
	assert.Equal(t, StateEditing, session.State())
	assert.Nil(t, result.Record)
}

func TestSubmitJoinsAllRequestsBeforeAggregating(t *testing.T) {
	var items []models.CartLineItem
	for _, id := range []string{"med-1", "med-2", "med-3", "med-4", "med-5"} {
		items = append(items, item(id, 5, 1))
	}
	orch, _, placer, history, userID := newFixture(items...)

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	require.NoError(t, err)
	assert.Equal(t, 5, placer.callCount())
	require.Len(t, history.records, 1)
	assert.Len(t, history.records[0].BackendOrders, 5)
}

func TestSubmitSurvivesHistoryWriteFailure(t *testing.T) {
	orch, carts, _, history, userID := newFixture(item("med-1", 10, 1))
	history.err = errors.New("mongo down")

	session := orch.Begin(context.Background(), userID)
	result, err := orch.Submit(context.Background(), session, validContact(), testIdentity())

	// Orders were created; the checkout still places even if the local
	// receipt could not be written.
	require.NoError(t, err)
	assert.Equal(t, StatePlaced, session.State())
	assert.NotNil(t, result.Record)
	assert.Empty(t, carts.Get(context.Background(), userID).Items)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	orch, _, _, _, userID := newFixture(item("med-1", 10, 1))

	session := orch.Begin(context.Background(), userID)
	_, err := orch.Submit(context.Background(), session, validContact(), testIdentity())
	require.NoError(t, err)

	_, err = orch.Submit(context.Background(), session, validContact(), testIdentity())
	assert.ErrorIs(t, err, ErrNotEditing)
}
