package eventbus

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	seq    uint64
	closed bool

	logger *slog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the operational logger.
func (b *Bus) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// Publish assigns the next sequence number and queues ev for every matching
// subscriber. It never blocks on subscribers. Events published after Close
// are dropped.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.seq++
	ev.Seq = b.seq

	for _, sub := range b.subs {
		if sub.wants(ev.Family) {
			sub.enqueue(ev)
		}
	}
}

// Subscribe registers a subscriber for the given families (all families when
// none are given). Events are delivered on Subscription.C.
func (b *Bus) Subscribe(families ...Family) *Subscription {
	sub := newSubscription(b, families)
	sub.out = make(chan Event, 16)
	go sub.pumpChannel()
	b.add(sub)
	return sub
}

// SubscribeFunc registers fn as a subscriber. fn runs on the subscription's
// own goroutine, one event at a time in publish order.
func (b *Bus) SubscribeFunc(fn func(Event), families ...Family) *Subscription {
	sub := newSubscription(b, families)
	go sub.pumpFunc(fn)
	b.add(sub)
	return sub
}

func (b *Bus) add(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.shutdown()
		return
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.logger.Debug("subscriber added", "subscriber", sub.id, "families", len(sub.families))
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}
