// api/util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
)

// Event represents an event in the system
type Event struct {
	Type    string
	Payload interface{}
}

// EventHandler is a function that handles an event
type EventHandler func(context.Context, Event) error

// subscriberQueueSize bounds how far a slow handler can fall behind before
// events are dropped. Consumers of the realtime stream reconcile against the
// store, so a drop degrades to a fetch rather than lost state.
const subscriberQueueSize = 256

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// subscription pairs a handler with the queue it drains. One goroutine drains
// each queue, so a handler sees events in the order they were published.
type subscription struct {
	handler EventHandler
	queue   chan queuedEvent
}

// EventBus manages event subscriptions and publications. Publishing enqueues
// onto per-subscriber buffered queues and returns, so it never blocks the
// caller's transaction; each subscriber's single drain goroutine preserves
// publish order end to end.
type EventBus struct {
	subscribers map[string][]*subscription
	mu          sync.RWMutex
	errorChan   chan error
}

// NewEventBus creates a new EventBus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]*subscription),
		errorChan:   make(chan error, 100), // Buffer size can be adjusted
	}
}

// Subscribe adds a new subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType string, handler EventHandler) {
	eb.subscribe(handler, eventType)
}

// SubscribeAll registers one handler for several event types behind a single
// queue. Events of different types reach the handler in the order they were
// published, which separate Subscribe calls cannot guarantee.
func (eb *EventBus) SubscribeAll(handler EventHandler, eventTypes ...string) {
	eb.subscribe(handler, eventTypes...)
}

func (eb *EventBus) subscribe(handler EventHandler, eventTypes ...string) {
	sub := &subscription{
		handler: handler,
		queue:   make(chan queuedEvent, subscriberQueueSize),
	}
	go eb.drain(sub)

	eb.mu.Lock()
	defer eb.mu.Unlock()
	for _, eventType := range eventTypes {
		eb.subscribers[eventType] = append(eb.subscribers[eventType], sub)
	}
}

// Publish sends an event to all subscribers. A subscriber whose queue is full
// loses the event; it is logged and the subscriber recovers on its next
// reconcile.
func (eb *EventBus) Publish(ctx context.Context, eventType string, payload interface{}) {
	eb.mu.RLock()
	subs := eb.subscribers[eventType]
	eb.mu.RUnlock()

	item := queuedEvent{
		ctx: ctx,
		event: Event{
			Type:    eventType,
			Payload: payload,
		},
	}

	for _, sub := range subs {
		select {
		case sub.queue <- item:
		default:
			logger.Error("Subscriber queue full, dropping event",
				zap.String("eventType", eventType))
		}
	}
}

// drain runs a subscriber's handler over its queue, one event at a time.
func (eb *EventBus) drain(sub *subscription) {
	for item := range sub.queue {
		if err := sub.handler(item.ctx, item.event); err != nil {
			select {
			case eb.errorChan <- fmt.Errorf("event handler error: %w", err):
			default:
				// If error channel is full, log the error
				logger.Error("Error channel full, logging event handler error",
					zap.Error(err),
					zap.String("eventType", item.event.Type))
			}
		}
	}
}

// Start begins processing events and handling errors
func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

// processErrors handles errors from event handlers
func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
