package storage

import "sync"

// Subscription is a live feed of snapshots for one user. The first value on
// C is the state at subscribe time; a new snapshot follows every change.
// Consumers must call Cancel when done or the subscriber entry leaks.
type Subscription[T any] struct {
	C <-chan T

	cancel func()
	once   sync.Once
}

// Cancel tears down the subscription and closes C. Safe to call twice.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
}

// NewSubscription wraps an existing channel and teardown function. Cancel
// runs the teardown exactly once. Consumers adapting other snapshot sources
// (and their tests) build subscriptions with this.
func NewSubscription[T any](ch <-chan T, cancel func()) *Subscription[T] {
	return &Subscription[T]{C: ch, cancel: cancel}
}

// feed is a per-user snapshot fan-out. Each subscriber gets a buffered
// channel; when a subscriber lags, older pending snapshots are replaced by
// newer ones rather than blocking the writer. Every emission is a complete
// snapshot, so coalescing never loses state, only intermediate frames.
type feed[T any] struct {
	mu   sync.Mutex
	subs map[string]map[chan T]struct{}
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{subs: make(map[string]map[chan T]struct{})}
}

func (f *feed[T]) subscribe(userID string, snapshot T) *Subscription[T] {
	ch := make(chan T, 4)
	ch <- snapshot

	f.mu.Lock()
	set, ok := f.subs[userID]
	if !ok {
		set = make(map[chan T]struct{})
		f.subs[userID] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	return NewSubscription(ch, func() {
		f.mu.Lock()
		if set, ok := f.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(f.subs, userID)
			}
		}
		f.mu.Unlock()
		close(ch)
	})
}

func (f *feed[T]) publish(userID string, snapshot T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[userID] {
		for {
			select {
			case ch <- snapshot:
			default:
				// Full buffer: drop the oldest pending snapshot and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
