package entity

import (
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// Tank is a differential-drive body owned by exactly one player.
type Tank struct {
	BaseEntity
	OwnerID           ID
	TurretID          ID
	Heading           float64
	TrackVelocity     physics.Vector2D
	TrackAcceleration physics.Vector2D
	TrackMaxVelocity  physics.Vector2D
	Radius            float64
}

// Collider returns the tank's collision circle.
func (t *Tank) Collider() physics.Circle {
	return physics.Circle{Center: t.Position, Radius: t.Radius}
}

// Update integrates track velocities and moves the tank for dt seconds.
func (t *Tank) Update(dt float64) {
	t.TrackVelocity = physics.IntegrateTracks(t.TrackVelocity, t.TrackAcceleration, t.TrackMaxVelocity, dt)
	state := physics.DriveState{
		Position:      t.Position,
		Heading:       t.Heading,
		TrackVelocity: t.TrackVelocity,
	}
	physics.UpdateDrive(&state, t.Radius, dt)
	t.Position = state.Position
	t.Heading = state.Heading
}

// Turret is mounted on a tank; its angle is relative to the tank body.
type Turret struct {
	ID           ID
	TankID       ID
	Angle        float64
	Velocity     float64
	Acceleration float64
	MaxVelocity  float64
	Active       bool
}

// GetID returns the turret's identifier
func (t *Turret) GetID() ID {
	return t.ID
}

// Update integrates the turret's rotation for dt seconds.
func (t *Turret) Update(dt float64) {
	t.Angle, t.Velocity = physics.UpdateTurret(t.Angle, t.Velocity, t.Acceleration, t.MaxVelocity, dt)
}

// WorldHeading returns the turret's heading in world space for a tank heading.
func (t *Turret) WorldHeading(tankHeading float64) float64 {
	return tankHeading + t.Angle
}

// Snapshot describes the tank and its turret for a State message.
func (t *Tank) Snapshot(turret *Turret) protocol.Tank {
	turretHeading := t.Heading
	if turret != nil {
		turretHeading = turret.WorldHeading(t.Heading)
	}
	return protocol.Tank{
		Position:        t.Position.Float32(),
		TankDirection:   physics.Forward(t.Heading).Float32(),
		TurretDirection: physics.Forward(turretHeading).Float32(),
	}
}
