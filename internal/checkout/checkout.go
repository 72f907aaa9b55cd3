package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/models"
	"backend/internal/orderapi"
)

// State is the checkout session state.
type State string

const (
	StateLoading    State = "loading"
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StatePlaced     State = "placed"
)

// Identity is the authenticated customer submitting the checkout.
type Identity struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Role  string
}

// OrderPlacer creates one order on the external pharmacy order API.
// *orderapi.Client satisfies it.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, order orderapi.OrderRequest) (*orderapi.Order, error)
}

// CartStore is the slice of the cart store the orchestrator needs.
type CartStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) *models.Cart
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

// Orchestrator turns a cart plus delivery details into orders on the
// external order API. Requests fan out concurrently, one per line item,
// and the submit joins on all of them before aggregating.
type Orchestrator struct {
	carts           CartStore
	orders          OrderPlacer
	history         HistoryRepository
	shippingFee     float64
	perOrderTimeout time.Duration
	logger          *zap.Logger
}

func NewOrchestrator(carts CartStore, orders OrderPlacer, history HistoryRepository, shippingFee float64, perOrderTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if perOrderTimeout <= 0 {
		perOrderTimeout = 15 * time.Second
	}
	return &Orchestrator{
		carts:           carts,
		orders:          orders,
		history:         history,
		shippingFee:     shippingFee,
		perOrderTimeout: perOrderTimeout,
		logger:          logger,
	}
}

// Session is one checkout flow for one customer.
type Session struct {
	userID primitive.ObjectID
	cart   *models.Cart
	state  State
}

func (s *Session) State() State       { return s.state }
func (s *Session) Cart() *models.Cart { return s.cart }

// Subtotal is the payable sum over the session's line items, before
// shipping. Recomputed on every call.
func (s *Session) Subtotal() float64 { return s.cart.TotalPrice() }

// Begin loads the customer's cart and resolves the initial state: Empty
// when there is nothing to buy, Editing otherwise.
func (o *Orchestrator) Begin(ctx context.Context, userID primitive.ObjectID) *Session {
	session := &Session{userID: userID, state: StateLoading}
	session.cart = o.carts.Get(ctx, userID)
	if session.cart.IsEmpty() {
		session.state = StateEmpty
	} else {
		session.state = StateEditing
	}
	return session
}

// Result is the outcome of a submit attempt. Record is non-nil whenever
// at least one order was created; Failed lists the line items whose
// order-creation call did not go through.
type Result struct {
	Record *models.OrderHistoryRecord
	Failed []models.FailedOrderItem
}

type orderOutcome struct {
	item  models.CartLineItem
	order *orderapi.Order
	err   error
}

// Submit validates the contact details and identity, fans out one
// order-creation request per line item, joins on all of them and
// aggregates.
//
// Partial successes are always recorded: every created order lands in
// the history record and its line item leaves the cart, so retrying a
// partly failed checkout cannot duplicate orders. On full success the
// cart is cleared and the session reaches Placed; on any failure the
// session drops back to Editing with the failed items still in the cart.
func (o *Orchestrator) Submit(ctx context.Context, session *Session, info ContactInfo, identity *Identity) (*Result, error) {
	switch session.state {
	case StateEditing:
	case StateEmpty:
		return nil, ErrEmptyCart
	default:
		return nil, ErrNotEditing
	}

	if identity == nil {
		return nil, ErrNotAuthenticated
	}
	if err := ValidateContact(info); err != nil {
		return nil, err
	}
	if session.cart.IsEmpty() {
		session.state = StateEmpty
		return nil, ErrEmptyCart
	}

	session.state = StateSubmitting
	checkoutAttempts.Inc()

	outcomes := o.fanOut(ctx, session.cart.Items, info, identity)

	var created []models.BackendOrder
	var placedItems []models.CartLineItem
	var failed []models.FailedOrderItem
	var remaining []models.CartLineItem

	for _, outcome := range outcomes {
		if outcome.err != nil {
			orderFailures.Inc()
			failed = append(failed, models.FailedOrderItem{
				MedicineID: outcome.item.MedicineID,
				Name:       outcome.item.Name,
				Reason:     outcome.err.Error(),
			})
			remaining = append(remaining, outcome.item)
			continue
		}
		ordersCreated.Inc()
		placedItems = append(placedItems, outcome.item)
		created = append(created, models.BackendOrder{
			OrderID:    outcome.order.ID,
			MedicineID: outcome.order.MedicineID,
			Quantity:   outcome.order.Quantity,
			Status:     outcome.order.Status,
			Total:      outcome.order.Total,
		})
	}

	var record *models.OrderHistoryRecord
	if len(created) > 0 {
		record = o.buildRecord(session, info, identity, placedItems, created, failed)
		if err := o.history.Insert(ctx, record); err != nil {
			// The orders exist on the API side; losing the receipt must
			// not fail the checkout. Log and carry on.
			o.logger.Error("failed to persist order history record",
				zap.String("orderId", record.OrderID), zap.Error(err))
		}
	}

	if len(failed) == 0 {
		if err := o.carts.Clear(ctx, session.userID); err != nil {
			o.logger.Error("failed to clear cart after checkout",
				zap.String("userId", session.userID.Hex()), zap.Error(err))
		}
		session.cart.Items = nil
		session.state = StatePlaced
		checkoutsPlaced.Inc()
		o.logger.Info("checkout placed",
			zap.String("userId", session.userID.Hex()),
			zap.String("orderId", record.OrderID),
			zap.Int("orders", len(created)),
		)
		return &Result{Record: record}, nil
	}

	// Keep only the failed items in the cart so a retry resubmits
	// exactly what is still outstanding.
	if len(placedItems) > 0 {
		session.cart.Items = remaining
		if err := o.carts.Save(ctx, session.cart); err != nil {
			o.logger.Error("failed to trim cart after partial checkout",
				zap.String("userId", session.userID.Hex()), zap.Error(err))
		}
	}
	session.state = StateEditing

	o.logger.Warn("checkout failed",
		zap.String("userId", session.userID.Hex()),
		zap.Int("placed", len(created)),
		zap.Int("failed", len(failed)),
	)
	return &Result{Record: record, Failed: failed}, &SubmitError{Placed: len(created), Failed: failed}
}

// fanOut issues one order-creation call per line item concurrently and
// waits for every call to settle. Completion order is irrelevant: each
// goroutine writes its own slot.
func (o *Orchestrator) fanOut(ctx context.Context, items []models.CartLineItem, info ContactInfo, identity *Identity) []orderOutcome {
	outcomes := make([]orderOutcome, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.CartLineItem) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, o.perOrderTimeout)
			defer cancel()

			order, err := o.orders.CreateOrder(callCtx, orderapi.OrderRequest{
				Phone:      info.Phone,
				Address:    info.Address,
				Quantity:   item.Quantity,
				MedicineID: item.MedicineID,
				AuthorID:   identity.ID.Hex(),
			})
			outcomes[i] = orderOutcome{item: item, order: order, err: err}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) buildRecord(session *Session, info ContactInfo, identity *Identity, placed []models.CartLineItem, created []models.BackendOrder, failed []models.FailedOrderItem) *models.OrderHistoryRecord {
	total := o.shippingFee
	for _, item := range placed {
		total += item.Price * float64(item.Quantity)
	}

	status := models.HistoryStatusPending
	if len(failed) > 0 {
		status = models.HistoryStatusPartial
	}

	return &models.OrderHistoryRecord{
		OrderID:       newReceiptID(),
		UserID:        session.userID,
		Items:         placed,
		Customer:      models.HistoryCustomer{Name: identity.Name, Email: identity.Email, Phone: info.Phone, Address: info.Address},
		TotalAmount:   total,
		ShippingFee:   o.shippingFee,
		OrderDate:     time.Now(),
		Status:        status,
		BackendOrders: created,
		FailedItems:   failed,
	}
}

// Receipt ids are time based; epoch milliseconds keep them unique enough
// for a per-customer receipt list.
func newReceiptID() string {
	return fmt.Sprintf("MED-%d", time.Now().UnixMilli())
}
