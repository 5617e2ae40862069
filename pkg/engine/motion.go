package engine

import (
	"github.com/opd-ai/go-tanks/pkg/physics"
)

// applyControls turns each player's stored targets into clamped accelerations.
func (g *Game) applyControls() {
	for _, p := range g.Store.Players.All() {
		tank, ok := g.Store.TankOf(p)
		if !ok {
			continue
		}
		tank.TrackAcceleration = p.Controls.TrackAccelTarget.Clamp(p.Limits.TrackMaxAcceleration)
		if turret, ok := g.Store.TurretOf(tank); ok {
			turret.Acceleration = physics.ClampScalar(p.Controls.TurretAccelTarget, p.Limits.TurretMaxAcceleration)
		}
	}
}

// integrate advances every tank, turret and bullet by dt seconds.
func (g *Game) integrate(dt float64) {
	for _, tank := range g.Store.Tanks.All() {
		tank.Update(dt)
	}
	for _, turret := range g.Store.Turrets.All() {
		turret.Update(dt)
	}
	for _, bullet := range g.Store.Bullets.All() {
		bullet.Update(dt)
	}
}
