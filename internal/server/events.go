package server

import (
	"context"
	"sync"
	"time"
)

const (
	EventRecipeChanged   = "recipe-change"
	eventHeartbeat       = "heartbeat"
	eventSourceBackend   = "brewform-backend"
	subscriberBufferSize = 16
)

// RecipeEvent notifies a recipe owner's subscribers that one of their
// recipes changed.
type RecipeEvent struct {
	OwnerID   string
	EventType string
	RecipeID  string
	Change    string
	Timestamp time.Time
}

// RecipeEventDispatcher fans recipe events out to per-user subscriber
// streams. Delivery is best-effort; a full buffer drops the event.
type RecipeEventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*eventSubscriber
	nextID      int64
}

type eventSubscriber struct {
	id     int64
	stream chan RecipeEvent
}

func NewRecipeEventDispatcher() *RecipeEventDispatcher {
	return &RecipeEventDispatcher{
		subscribers: make(map[string]map[int64]*eventSubscriber),
	}
}

// Subscribe registers a stream for the user's recipe events. The stream is
// detached when ctx ends or the returned cleanup runs.
func (d *RecipeEventDispatcher) Subscribe(ctx context.Context, userID string) (<-chan RecipeEvent, func()) {
	if userID == "" {
		ch := make(chan RecipeEvent)
		close(ch)
		return ch, func() {}
	}
	subscriber := &eventSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RecipeEvent, subscriberBufferSize),
	}
	d.registerSubscriber(userID, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(userID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the event to every subscriber of the owning user.
func (d *RecipeEventDispatcher) Publish(event RecipeEvent) {
	if event.OwnerID == "" || event.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[event.OwnerID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*eventSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (d *RecipeEventDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RecipeEventDispatcher) registerSubscriber(userID string, subscriber *eventSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]*eventSubscriber)
	}
	d.subscribers[userID][subscriber.id] = subscriber
}

func (d *RecipeEventDispatcher) unregisterSubscriber(userID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[userID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, userID)
		}
	}
	d.mu.Unlock()
}
