// Package entity holds the arena-indexed entity store of the simulation.
// Ownership is expressed with ID references (Tank.OwnerID, Turret.TankID)
// rather than a parent/child tree.
package entity

import (
	"github.com/opd-ai/go-tanks/pkg/physics"
)

// ID is a stable identifier for an entity. Zero means "no entity".
type ID uint64

// Entity is the base interface for everything kept in a Pool
type Entity interface {
	GetID() ID
}

// BaseEntity contains common functionality for moving entities
type BaseEntity struct {
	ID       ID
	Position physics.Vector2D
	// Active is cleared to mark the entity for removal at the next sweep.
	Active bool
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}
