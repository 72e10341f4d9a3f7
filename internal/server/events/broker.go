package events

import (
	"context"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
)

// queueSize bounds the events waiting for the broker loop.
const queueSize = 256

// Broker distributes events to every registered subscriber.
//
// A single loop delivers each event to the subscribers one after another,
// so every subscriber sees events in publish order. Publish waits for
// queue space instead of dropping: a lost marker event would leave
// clients with markers the server no longer has.
type Broker struct {
	subscribers []Subscriber
	events      chan Event
	register    chan Subscriber
	unregister  chan Subscriber
	stopped     chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subscribers: make([]Subscriber, 0),
		events:      make(chan Event, queueSize),
		// buffered so transports can subscribe before Run starts
		register:   make(chan Subscriber, 10),
		unregister: make(chan Subscriber, 10),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the broker's event loop. It returns when ctx is cancelled,
// after closing every subscriber.
func (b *Broker) Run(ctx context.Context) {
	defer b.stopOnce.Do(func() { close(b.stopped) })

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return

		case sub := <-b.register:
			b.add(sub)

		case sub := <-b.unregister:
			b.mu.Lock()
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					_ = s.Close()
					break
				}
			}
			n := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber unregistered")

		case event := <-b.events:
			// subscribers that registered before this event was taken get it
			b.acceptPending()
			b.deliver(event)
		}
	}
}

func (b *Broker) add(sub Subscriber) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	n := len(b.subscribers)
	b.mu.Unlock()
	b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber registered")
}

func (b *Broker) acceptPending() {
	for {
		select {
		case sub := <-b.register:
			b.add(sub)
		default:
			return
		}
	}
}

func (b *Broker) deliver(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(event); err != nil {
			b.logger.Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Failed to send event to subscriber")
		}
	}

	b.logger.Trace().
		Str("event_type", string(event.Type)).
		Int("subscribers", len(subs)).
		Msg("Event broadcasted")
}

// Publish queues an event for every subscriber. It blocks while the queue
// is full and returns immediately once the broker has stopped.
func (b *Broker) Publish(eventType EventType, data any) {
	event := Event{
		Type:      eventType,
		Timestamp: utc.Now(),
		Data:      data,
	}

	select {
	case b.events <- event:
	case <-b.stopped:
		b.logger.Debug().Str("event_type", string(eventType)).Msg("Broker stopped, event discarded")
	}
}

// Subscribe registers a new subscriber to receive events.
func (b *Broker) Subscribe(sub Subscriber) {
	b.register <- sub
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.unregister <- sub
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
