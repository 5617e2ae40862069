// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-tanks/pkg/physics"
)

// Type represents the type of event
type Type string

// Lifecycle event types published by the game loop
const (
	PlayerJoined      Type = "player_joined"
	PlayerReconnected Type = "player_reconnected"
	PlayerLeft        Type = "player_left"
	TankSpawned       Type = "tank_spawned"
	TankDestroyed     Type = "tank_destroyed"
	BulletFired       Type = "bullet_fired"
	BulletBounced     Type = "bullet_bounced"
	BulletExpired     Type = "bullet_expired"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription uint64

type subscriber struct {
	id      Subscription
	handler Handler
}

// Bus dispatches events synchronously to subscribers in registration order.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   Subscription
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: b.nextID, handler: handler})
	return b.nextID
}

// SubscribeAll registers one handler for every lifecycle event type.
func (b *Bus) SubscribeAll(handler Handler) []Subscription {
	types := []Type{
		PlayerJoined, PlayerReconnected, PlayerLeft,
		TankSpawned, TankDestroyed,
		BulletFired, BulletBounced, BulletExpired,
	}
	subs := make([]Subscription, 0, len(types))
	for _, t := range types {
		subs = append(subs, b.Subscribe(t, handler))
	}
	return subs
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(eventType Type, sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, s := range handlers {
		if s.id == sub {
			// copy so a Publish holding the old slice is unaffected
			next := make([]subscriber, 0, len(handlers)-1)
			next = append(next, handlers[:i]...)
			b.handlers[eventType] = append(next, handlers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range handlers {
		s.handler(event)
	}
}

// PlayerEvent describes a player joining, reconnecting or leaving.
type PlayerEvent struct {
	BaseEvent
	PlayerID  uint64
	Port      uint16
	SessionID string
	Deaths    uint32
}

// NewPlayerEvent creates a new player event
func NewPlayerEvent(eventType Type, source interface{}, playerID uint64, port uint16, sessionID string, deaths uint32) *PlayerEvent {
	return &PlayerEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		PlayerID:  playerID,
		Port:      port,
		SessionID: sessionID,
		Deaths:    deaths,
	}
}

// Cause explains why a tank was destroyed.
type Cause string

const (
	CauseNone      Cause = ""
	CauseTankCrash Cause = "tank"
	CauseBullet    Cause = "bullet"
)

// TankEvent describes a tank spawning or being destroyed.
type TankEvent struct {
	BaseEvent
	TankID   uint64
	OwnerID  uint64
	Position physics.Vector2D
	Cause    Cause
}

// NewTankEvent creates a new tank event
func NewTankEvent(eventType Type, source interface{}, tankID, ownerID uint64, position physics.Vector2D, cause Cause) *TankEvent {
	return &TankEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		TankID:    tankID,
		OwnerID:   ownerID,
		Position:  position,
		Cause:     cause,
	}
}

// BulletEvent describes a bullet being fired, bouncing or expiring.
type BulletEvent struct {
	BaseEvent
	BulletID uint64
	Position physics.Vector2D
	Bounces  int
}

// NewBulletEvent creates a new bullet event
func NewBulletEvent(eventType Type, source interface{}, bulletID uint64, position physics.Vector2D, bounces int) *BulletEvent {
	return &BulletEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		BulletID:  bulletID,
		Position:  position,
		Bounces:   bounces,
	}
}
