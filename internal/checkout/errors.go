package checkout

import (
	"errors"
	"fmt"

	"backend/internal/models"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotAuthenticated = errors.New("authentication required")
	ErrNotEditing       = errors.New("checkout is not accepting a submit")
)

// ValidationError reports a rejected contact field. No order request is
// sent while one of these is outstanding.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmitError aggregates the failed order-creation calls of one checkout
// attempt. Placed counts the orders that did go through; those are
// already recorded in order history and removed from the cart, so a
// retry only resubmits the failed items.
type SubmitError struct {
	Placed int
	Failed []models.FailedOrderItem
}

func (e *SubmitError) Error() string {
	if e.Placed > 0 {
		return fmt.Sprintf("%d of %d orders failed", len(e.Failed), e.Placed+len(e.Failed))
	}
	return fmt.Sprintf("all %d orders failed", len(e.Failed))
}
