// Package notify provides model-change notification for the task catalog.
//
// Components that mutate catalog-visible state (stores, watcher, explicit
// refresh) publish a Change; the rendering collaborator subscribes once and
// re-pulls the tree on every delivery.
package notify

import (
	"sync"
)

// Reason identifies what triggered a model change.
type Reason int

const (
	// ReasonScan indicates an explicit refresh request.
	ReasonScan Reason = iota

	// ReasonRecency indicates the recently-used list changed.
	ReasonRecency

	// ReasonVisibility indicates hidden tasks or sections changed.
	ReasonVisibility

	// ReasonWatch indicates a filesystem change to a watched file.
	ReasonWatch
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonScan:
		return "scan"
	case ReasonRecency:
		return "recency"
	case ReasonVisibility:
		return "visibility"
	case ReasonWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// Change describes one model-change event.
type Change struct {
	// Reason is what triggered the change.
	Reason Reason

	// Path is the filesystem path that changed, for ReasonWatch.
	Path string
}

// Observer is called for every published change.
type Observer func(change Change)

// Subscription represents an active observer registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
		s.notifier = nil
	}
}

// Notifier fans a Change out to all subscribed observers.
// Delivery is synchronous and in subscription order.
type Notifier struct {
	mu        sync.RWMutex
	observers map[uint64]Observer
	order     []uint64
	nextID    uint64
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		observers: make(map[uint64]Observer),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(obs Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers[id] = obs
	n.order = append(n.order, id)

	return &Subscription{id: id, notifier: n}
}

// Notify publishes a change to every observer.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.order))
	for _, id := range n.order {
		if obs, ok := n.observers[id]; ok {
			observers = append(observers, obs)
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.observers, id)
	for i, oid := range n.order {
		if oid == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}
