package rtsp

import (
	"sync"

	"github.com/google/uuid"
)

type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeConnected
	EventTypeClosed
)

func (e EventType) String() string {
	switch e {
	case EventTypeConnected:
		return "connected"
	case EventTypeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type   EventType
	Client *Client
}

// notifier delivers lifecycle events to subscribers. Once stopped it drops
// every publish and ignores new subscriptions.
type notifier struct {
	sync.Mutex
	stopped     bool
	subscribers map[string]func(event *Event)
}

func newNotifier() *notifier {
	return &notifier{
		subscribers: make(map[string]func(*Event)),
	}
}

func (n *notifier) Subscribe(h func(event *Event)) func() {
	n.Lock()
	defer n.Unlock()
	if n.stopped {
		return func() {}
	}
	id := uuid.NewString()
	n.subscribers[id] = h
	return func() {
		n.Lock()
		defer n.Unlock()
		delete(n.subscribers, id)
	}
}

func (n *notifier) Publish(event *Event) {
	n.Lock()
	if n.stopped {
		n.Unlock()
		return
	}
	handlers := make([]func(*Event), 0, len(n.subscribers))
	for _, h := range n.subscribers {
		handlers = append(handlers, h)
	}
	n.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (n *notifier) Stop() {
	n.Lock()
	defer n.Unlock()
	n.stopped = true
	n.subscribers = make(map[string]func(*Event))
}
