package client

import "sync"

const (
	// NotifyMessage signals a new admin or ai message; the widget plays a sound.
	NotifyMessage = "message"
	// NotifyToast is an operator-facing error or status line.
	NotifyToast = "toast"
)

type Notification struct {
	Kind   string
	Level  string
	Action string
	Text   string
	// Sender is set for NotifyMessage.
	Sender string
}

// Notifier is a publish/subscribe channel owned by whoever creates it.
// Subscribers are called synchronously in subscription order.
type Notifier struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(Notification)
	order       []int
	closed      bool
}

func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[int]func(Notification))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(Notification)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return func() {}
	}

	id := n.nextID
	n.nextID++
	n.subscribers[id] = fn
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subscribers, id)
			for i, existing := range n.order {
				if existing == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (n *Notifier) Publish(notification Notification) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	targets := make([]func(Notification), 0, len(n.order))
	for _, id := range n.order {
		targets = append(targets, n.subscribers[id])
	}
	n.mu.RUnlock()

	for _, fn := range targets {
		fn(notification)
	}
}

// Toast publishes an error naming the action that failed.
func (n *Notifier) Toast(action string, err error) {
	n.Publish(Notification{
		Kind:   NotifyToast,
		Level:  "error",
		Action: action,
		Text:   "Failed to " + action + ": " + err.Error(),
	})
}

// Close drops all subscribers; later publishes are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subscribers = map[int]func(Notification){}
	n.order = nil
}
