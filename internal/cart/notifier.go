package cart

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event describes a cart change, broadcast on every save and clear so
// observers (the cart-count badge feed) can refresh.
type Event struct {
	UserID     primitive.ObjectID
	TotalItems int
	TotalPrice float64
}

// Notifier is an in-process broadcast of cart change events, scoped per
// user. Sends never block: a subscriber that cannot keep up misses the
// event and catches up on its next read of the store.
type Notifier struct {
	mu   sync.RWMutex
	subs map[primitive.ObjectID]map[chan Event]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[primitive.ObjectID]map[chan Event]struct{})}
}

// Subscribe registers an observer for one user's cart changes. The
// returned cancel func must be called when the observer goes away.
func (n *Notifier) Subscribe(userID primitive.ObjectID) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	n.mu.Lock()
	if n.subs[userID] == nil {
		n.subs[userID] = make(map[chan Event]struct{})
	}
	n.subs[userID][ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if set, ok := n.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(n.subs, userID)
			}
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber of its user.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.subs[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}
}
