package engine

import (
	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// postTick runs respawn, shoot cooldown, firing and inactivity eviction with
// the full tick duration.
func (g *Game) postTick(out []Outgoing) []Outgoing {
	dt := g.TimeStep
	respawnDelay := g.Config.RespawnDelay.Duration

	for _, p := range g.Store.Players.All() {
		if p.TankID == 0 && p.RespawnTimer.Advance(dt, respawnDelay) {
			g.Sessions.Spawn(p)
		}
		if p.ShootTimer.Advance(dt, p.Limits.ShootDelay) {
			p.ShootTimer.Stop()
		}
		if p.Controls.Shoot && !p.ShootTimer.Running {
			if tank, ok := g.Store.TankOf(p); ok {
				g.fire(p, tank)
				p.Controls.Shoot = false
				p.ShootTimer.Start()
			}
		}
	}

	for _, p := range g.Sessions.TickInactivity(dt) {
		out = g.send(out, p.Destination(), protocol.Disconnected{})
	}
	return out
}

// fire spawns a bullet at the turret muzzle travelling along the turret's
// world heading.
func (g *Game) fire(p *entity.Player, tank *entity.Tank) {
	heading := tank.Heading
	if turret, ok := g.Store.TurretOf(tank); ok {
		heading = turret.WorldHeading(tank.Heading)
	}
	dir := physics.Forward(heading)

	bullet := &entity.Bullet{
		BaseEntity: entity.BaseEntity{
			Position: tank.Position.Add(dir.Scale(tank.Radius + p.Limits.BulletRadius)),
		},
		Velocity:   dir.Scale(p.Limits.BulletSpeed),
		Radius:     p.Limits.BulletRadius,
		MaxBounces: p.Limits.BulletMaxBounces,
	}
	g.Store.AddBullet(bullet)
	g.EventBus.Publish(event.NewBulletEvent(event.BulletFired, g, uint64(bullet.ID), bullet.Position, 0))
}
