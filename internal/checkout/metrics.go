package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout submissions that passed validation and reached the order fan-out.",
	})
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Individual orders successfully created on the external order API.",
	})
	orderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_order_failures_total",
		Help: "Individual order-creation calls that failed.",
	})
	checkoutsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_placed_total",
		Help: "Checkouts where every order was created and the cart was cleared.",
	})
)
