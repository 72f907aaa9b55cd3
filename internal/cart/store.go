package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"backend/internal/models"
)

// ErrItemNotFound is returned by quantity updates that name a medicine
// id with no matching line item.
var ErrItemNotFound = errors.New("item not in cart")

// Store is the single mutation boundary for customer carts. Every view
// of the cart (HTTP handlers, checkout, the badge feed) goes through it;
// nothing else reads or writes the persisted document.
//
// Reads never fail: an absent, undecodable or unreachable cart degrades
// to an empty one. Writes return explicit errors.
type Store struct {
	repo     Repository
	cache    Cache // optional, may be nil
	notifier *Notifier
	logger   *zap.Logger
	sfg      singleflight.Group
}

func NewStore(repo Repository, cache Cache, notifier *Notifier, logger *zap.Logger) *Store {
	return &Store{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

// Notifier exposes the change broadcast for observers.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

// Get returns the user's current cart. A missing document, a decode
// failure or an unavailable repository all yield an empty cart; the
// caller never sees an error.
//
// Concurrent calls for the same user are coalesced into one load, so
// the loaded cart is shared state; every caller gets its own copy and
// may mutate it freely.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) *models.Cart {
	v, err, _ := s.sfg.Do(userID.Hex(), func() (interface{}, error) {
		if s.cache != nil {
			cached, err := s.cache.Get(ctx, userID)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.logger.Warn("cart cache get failed", zap.Error(err))
			}
		}

		cart, err := s.repo.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, ErrCartNotFound) {
				s.logger.Warn("cart read failed, serving empty cart",
					zap.String("userId", userID.Hex()), zap.Error(err))
			}
			return emptyCart(userID), nil
		}

		if s.cache != nil {
			go func() {
				cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := s.cache.Set(cacheCtx, userID, cart); err != nil {
					s.logger.Warn("cart cache set failed", zap.Error(err))
				}
			}()
		}

		return cart, nil
	})
	if err != nil {
		// The loader never returns an error, but keep the fallback anyway.
		return emptyCart(userID)
	}
	return v.(*models.Cart).Clone()
}

// Save persists the whole cart and broadcasts a change event.
func (s *Store) Save(ctx context.Context, cart *models.Cart) error {
	if err := s.repo.Upsert(ctx, cart); err != nil {
		return err
	}
	s.invalidate(cart.UserID)
	s.publish(cart)
	return nil
}

// AddItem merges the given item into the cart: an existing line item
// with the same medicine id has its quantity incremented, otherwise the
// item is appended. Quantity defaults to 1 when non-positive.
func (s *Store) AddItem(ctx context.Context, userID primitive.ObjectID, item models.CartLineItem) error {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	cart := s.Get(ctx, userID)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].MedicineID == item.MedicineID {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}

	return s.Save(ctx, cart)
}

// RemoveItem drops the line item with the given medicine id. Removing
// an absent item is a no-op: nothing is written and no event is
// broadcast.
func (s *Store) RemoveItem(ctx context.Context, userID primitive.ObjectID, medicineID string) error {
	cart := s.Get(ctx, userID)

	items := make([]models.CartLineItem, 0, len(cart.Items))
	for _, existing := range cart.Items {
		if existing.MedicineID == medicineID {
			continue
		}
		items = append(items, existing)
	}
	if len(items) == len(cart.Items) {
		return nil
	}
	cart.Items = items

	return s.Save(ctx, cart)
}

// UpdateQuantity sets the quantity of the line item with the given
// medicine id. A quantity of zero or less removes the item; an id with
// no matching item yields ErrItemNotFound.
func (s *Store) UpdateQuantity(ctx context.Context, userID primitive.ObjectID, medicineID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, medicineID)
	}

	cart := s.Get(ctx, userID)
	for i := range cart.Items {
		if cart.Items[i].MedicineID == medicineID {
			cart.Items[i].Quantity = quantity
			return s.Save(ctx, cart)
		}
	}

	return ErrItemNotFound
}

// Clear erases the persisted cart and broadcasts the change.
func (s *Store) Clear(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	s.publish(emptyCart(userID))
	return nil
}

// TotalItems recomputes the item count from the current persisted state.
func (s *Store) TotalItems(ctx context.Context, userID primitive.ObjectID) int {
	return s.Get(ctx, userID).TotalItems()
}

// TotalPrice recomputes the payable total from the current persisted
// state. Nothing caches this sum.
func (s *Store) TotalPrice(ctx context.Context, userID primitive.ObjectID) float64 {
	return s.Get(ctx, userID).TotalPrice()
}

func (s *Store) invalidate(userID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.Error(err))
	}
}

func (s *Store) publish(cart *models.Cart) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(Event{
		UserID:     cart.UserID,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
	})
}

func emptyCart(userID primitive.ObjectID) *models.Cart {
	now := time.Now()
	return &models.Cart{
		UserID:    userID,
		Items:     []models.CartLineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
