package entity

import (
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// Bullet is a free-flying projectile. Once fired no player controls it.
type Bullet struct {
	BaseEntity
	Velocity   physics.Vector2D
	Radius     float64
	Bounces    int
	MaxBounces int
}

// Update moves the bullet along its velocity for dt seconds.
func (b *Bullet) Update(dt float64) {
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
}

// Collider returns the bullet's collision circle.
func (b *Bullet) Collider() physics.Circle {
	return physics.Circle{Center: b.Position, Radius: b.Radius}
}

// Reflect mirrors the bullet's velocity about a wall normal.
func (b *Bullet) Reflect(normal physics.Vector2D) {
	b.Velocity = b.Velocity.Reflect(normal)
}

// AddBounce counts one bounce and reports whether the bullet survives it.
func (b *Bullet) AddBounce() bool {
	b.Bounces++
	return b.Bounces <= b.MaxBounces
}

// Snapshot describes the bullet for a State message. Direction carries the
// full velocity so clients can extrapolate between States.
func (b *Bullet) Snapshot() protocol.Bullet {
	return protocol.Bullet{
		Position:  b.Position.Float32(),
		Direction: b.Velocity.Float32(),
	}
}
