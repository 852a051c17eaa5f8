package engine

import "sync"

// Observer receives a read-only snapshot and the client update after every
// completed command or timeout. Update runs synchronously on the publishing
// goroutine, so it must return promptly and must not issue engine commands.
type Observer interface {
	Update(snapshot Snapshot, update ClientUpdate)
}

// ObserverFunc adapts a plain function to the Observer interface
type ObserverFunc func(snapshot Snapshot, update ClientUpdate)

// Update calls f(snapshot, update)
func (f ObserverFunc) Update(snapshot Snapshot, update ClientUpdate) {
	f(snapshot, update)
}

type subscription struct {
	id       uint64
	observer Observer
}

// NotificationBus delivers client updates to observers in subscription order
type NotificationBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// NewNotificationBus creates an empty bus
func NewNotificationBus() *NotificationBus {
	return &NotificationBus{}
}

// Subscribe registers an observer and returns a function removing it.
// Calling the returned function more than once is harmless.
func (b *NotificationBus) Subscribe(observer Observer) func() {
	if observer == nil {
		panic("engine: nil observer")
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, observer: observer})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *NotificationBus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every observer subscribed at the time of the call.
// Observers may subscribe or unsubscribe from inside Update.
func (b *NotificationBus) Publish(snapshot Snapshot, update ClientUpdate) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.observer.Update(snapshot, update)
	}
}

// Len returns the number of subscribed observers
func (b *NotificationBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
