package server

import (
	"sync"

	"github.com/pkg/errors"
)

// notifier fans change events out to stream subscribers. A subscriber that
// falls behind misses events rather than stalling the publisher.
type notifier struct {
	mu        sync.Mutex
	listeners map[string]chan changeEvent
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[string]chan changeEvent)}
}

func (n *notifier) subscribe(subscriber string) (<-chan changeEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[subscriber]; ok {
		return nil, errors.Errorf("subscriber %s already registered", subscriber)
	}
	ch := make(chan changeEvent, 16)
	n.listeners[subscriber] = ch
	return ch, nil
}

func (n *notifier) unsubscribe(subscriber string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, subscriber)
}

func (n *notifier) publish(e changeEvent) (dropped int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.listeners {
		select {
		case ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
