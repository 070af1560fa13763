package eventbus

import "sync"

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id       uint64
	bus      *Bus
	families map[Family]struct{}

	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	out chan Event
}

func newSubscription(b *Bus, families []Family) *Subscription {
	s := &Subscription{
		bus:    b,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if len(families) > 0 {
		s.families = make(map[Family]struct{}, len(families))
		for _, f := range families {
			s.families[f] = struct{}{}
		}
	}
	return s
}

// C returns the delivery channel. It is closed when the subscription ends.
// Nil for subscriptions created with SubscribeFunc.
func (s *Subscription) C() <-chan Event {
	return s.out
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription. Undelivered events are discarded.
func (s *Subscription) Close() {
	s.bus.remove(s.id)
	s.shutdown()
}

func (s *Subscription) shutdown() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) wants(f Family) bool {
	if s.families == nil {
		return true
	}
	_, ok := s.families[f]
	return ok
}

// enqueue appends ev and wakes the pump. Called with the bus lock held.
func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// take removes and returns all queued events.
func (s *Subscription) take() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

func (s *Subscription) pumpChannel() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for _, ev := range s.take() {
			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Subscription) pumpFunc(fn func(Event)) {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for _, ev := range s.take() {
			select {
			case <-s.done:
				return
			default:
			}
			fn(ev)
		}
	}
}
