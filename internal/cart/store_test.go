package cart

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
)

type mockRepository struct {
	mu     sync.RWMutex
	cart   *models.Cart
	getErr error
	err    error
}

func (m *mockRepository) Get(context.Context, primitive.ObjectID) (*models.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockRepository) Upsert(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = cart
	return nil
}

func (m *mockRepository) Delete(context.Context, primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = nil
	return nil
}

// slowRepository delays reads so that overlapping Get calls for the
// same user coalesce into a single load.
type slowRepository struct {
	mockRepository
	delay time.Duration
}

func (s *slowRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	time.Sleep(s.delay)
	return s.mockRepository.Get(ctx, userID)
}

func newTestStore(repo Repository) *Store {
	return NewStore(repo, nil, NewNotifier(), zap.NewNop())
}

func lineItem(id string, price float64, qty int) models.CartLineItem {
	return models.CartLineItem{
		MedicineID: id,
		Name:       "Napa 500mg",
		Price:      price,
		Quantity:   qty,
		Brand:      "Beximco",
	}
}

func TestGetReturnsEmptyCartWhenMissing(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()

	cart := store.Get(context.Background(), userID)

	require.NotNil(t, cart)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestGetReturnsEmptyCartWhenRepositoryUnavailable(t *testing.T) {
	store := newTestStore(&mockRepository{getErr: errors.New("connection refused")})
	userID := primitive.NewObjectID()

	cart := store.Get(context.Background(), userID)

	require.NotNil(t, cart)
	assert.Empty(t, cart.Items)
	assert.Zero(t, store.TotalItems(context.Background(), userID))
}

func TestGetReleasesIndependentCopies(t *testing.T) {
	repo := &mockRepository{}
	store := newTestStore(repo)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))

	first := store.Get(ctx, userID)
	second := store.Get(ctx, userID)

	first.Items[0].Quantity = 99
	assert.Equal(t, 2, second.Items[0].Quantity)
	assert.Equal(t, 2, store.Get(ctx, userID).Items[0].Quantity)
}

func TestGetCoalescedCallersReceiveDistinctCarts(t *testing.T) {
	repo := &slowRepository{delay: 50 * time.Millisecond}
	store := newTestStore(repo)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))

	carts := make([]*models.Cart, 2)
	var wg sync.WaitGroup
	for i := range carts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			carts[i] = store.Get(ctx, userID)
		}(i)
	}
	wg.Wait()

	require.NotNil(t, carts[0])
	require.NotNil(t, carts[1])
	assert.NotSame(t, carts[0], carts[1])

	carts[0].Items[0].Quantity = 99
	assert.Equal(t, 2, carts[1].Items[0].Quantity)
}

func TestConcurrentReadsAndMutations(t *testing.T) {
	repo := &slowRepository{delay: time.Millisecond}
	store := newTestStore(repo)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 1)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				store.Get(ctx, userID).TotalPrice()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = store.AddItem(ctx, userID, lineItem("med-2", 12, 1))
				_ = store.UpdateQuantity(ctx, userID, "med-2", 3)
			}
		}()
	}
	wg.Wait()

	cart := store.Get(ctx, userID)
	assert.Equal(t, 8.5, cart.Items[0].Price)
}

func TestAddItemMergesOnExistingMedicineID(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))
	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 3)))

	cart := store.Get(ctx, userID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemAppendsNewMedicineID(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 1)))
	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-2", 12, 1)))

	cart := store.Get(ctx, userID)
	assert.Len(t, cart.Items, 2)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()

	require.NoError(t, store.AddItem(context.Background(), userID, lineItem("med-1", 8.5, 0)))

	cart := store.Get(context.Background(), userID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestRemoveItemDropsExactlyOneEntry(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))
	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-2", 12, 1)))

	require.NoError(t, store.RemoveItem(ctx, userID, "med-1"))

	cart := store.Get(ctx, userID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "med-2", cart.Items[0].MedicineID)
	assert.Equal(t, 12.0, store.TotalPrice(ctx, userID))
}

func TestUpdateQuantitySetsNewQuantity(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))
	require.NoError(t, store.UpdateQuantity(ctx, userID, "med-1", 7))

	cart := store.Get(ctx, userID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestUpdateQuantityUnknownMedicineID(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))

	events, cancel := store.Notifier().Subscribe(userID)
	defer cancel()

	err := store.UpdateQuantity(ctx, userID, "med-9", 3)

	assert.ErrorIs(t, err, ErrItemNotFound)
	select {
	case <-events:
		t.Fatal("no change event expected for an unmatched update")
	default:
	}
	assert.Equal(t, 2, store.Get(ctx, userID).Items[0].Quantity)
}

func TestRemoveItemAbsentMedicineIDIsNoOp(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))

	events, cancel := store.Notifier().Subscribe(userID)
	defer cancel()

	require.NoError(t, store.RemoveItem(ctx, userID, "med-9"))

	select {
	case <-events:
		t.Fatal("no change event expected when nothing was removed")
	default:
	}
	require.Len(t, store.Get(ctx, userID).Items, 1)
}

func TestUpdateQuantityZeroRemovesItem(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))
	require.NoError(t, store.UpdateQuantity(ctx, userID, "med-1", 0))

	assert.Empty(t, store.Get(ctx, userID).Items)
}

func TestTotalPriceIsIdempotent(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))
	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-2", 12, 3)))

	first := store.TotalPrice(ctx, userID)
	second := store.TotalPrice(ctx, userID)

	assert.Equal(t, first, second)
	assert.Equal(t, 8.5*2+12*3, first)
	assert.Equal(t, 5, store.TotalItems(ctx, userID))
}

func TestClearErasesCartAndNotifies(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, userID, lineItem("med-1", 8.5, 2)))

	events, cancel := store.Notifier().Subscribe(userID)
	defer cancel()

	require.NoError(t, store.Clear(ctx, userID))

	assert.Empty(t, store.Get(ctx, userID).Items)

	select {
	case event := <-events:
		assert.Zero(t, event.TotalItems)
	default:
		t.Fatal("expected a change event after clear")
	}
}

func TestSavePublishesChangeEvent(t *testing.T) {
	store := newTestStore(&mockRepository{})
	userID := primitive.NewObjectID()

	events, cancel := store.Notifier().Subscribe(userID)
	defer cancel()

	require.NoError(t, store.AddItem(context.Background(), userID, lineItem("med-1", 8.5, 2)))

	select {
	case event := <-events:
		assert.Equal(t, 2, event.TotalItems)
		assert.Equal(t, 17.0, event.TotalPrice)
	default:
		t.Fatal("expected a change event after add")
	}
}

func TestSaveSurfacesRepositoryError(t *testing.T) {
	repo := &mockRepository{err: errors.New("write failed")}
	store := newTestStore(repo)

	err := store.AddItem(context.Background(), primitive.NewObjectID(), lineItem("med-1", 8.5, 1))

	assert.Error(t, err)
}
