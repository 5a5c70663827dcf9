// Package events carries session notifications to observers such as a
// status display or a tally.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// DefaultBus delivers events in publish order on a single goroutine
type DefaultBus struct {
	subscribers map[Type][]subscription
	mu          sync.RWMutex

	queue  chan Event
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	nextSubID SubscriptionID
	logger    *logging.Logger
}

// NewBus creates a bus with the given queue size. A nil logger discards
// handler panics.
func NewBus(bufferSize int, logger *logging.Logger) *DefaultBus {
	if logger == nil {
		logger = logging.Nop()
	}
	b := &DefaultBus{
		subscribers: make(map[Type][]subscription),
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		nextSubID:   1,
		logger:      logger,
	}
	b.wg.Add(1)
	go b.process()
	return b
}

// Subscribe registers a handler for one event type
func (b *DefaultBus) Subscribe(t Type, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.subscribers[t] = append(b.subscribers[t], subscription{id: id, handler: h})
	return id
}

// Unsubscribe removes a subscription
func (b *DefaultBus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event, blocking while the queue is full. Events
// published after Stop are dropped.
func (b *DefaultBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case <-b.stopCh:
		return
	default:
	}
	select {
	case b.queue <- e:
	case <-b.stopCh:
	}
}

// Stop delivers what is queued and then shuts the bus down
func (b *DefaultBus) Stop() {
	b.once.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *DefaultBus) process() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		case <-b.stopCh:
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *DefaultBus) dispatch(e Event) {
	b.mu.RLock()
	subs := b.subscribers[e.Type]
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(h, e)
	}
}

func (b *DefaultBus) call(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", fmt.Errorf("%s: %v", e.Type, r))
		}
	}()
	h(e)
}

// SubscriberCount returns the number of handlers for an event type
func (b *DefaultBus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[t])
}
