package engine

import (
	"context"

	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/physics"
)

// resolveCollisions runs the pairwise passes in a fixed order. Later passes
// see the positions and destruction marks left by earlier ones; destroyed
// entities are swept once every pass has run.
func (g *Game) resolveCollisions() {
	g.resolveTankWalls()
	g.resolveTankTanks()
	g.resolveTankBullets()
	g.resolveBulletWalls()
	// bullets pass through each other

	g.Store.Sweep()
}

// resolveTankWalls pushes tanks out of walls along the wall normals. The
// corrections from every touching wall are summed and applied once.
func (g *Game) resolveTankWalls() {
	for _, tank := range g.Store.Tanks.All() {
		var correction physics.Vector2D
		for _, wall := range g.Store.Walls {
			prox, touching := wall.Segment().Touches(tank.Position, tank.Radius)
			if !touching {
				continue
			}
			correction = correction.Add(wall.Normal.Scale(tank.Radius - prox.Across))
		}
		tank.Position = tank.Position.Add(correction)
	}
}

// resolveTankTanks destroys both tanks of every overlapping pair.
func (g *Game) resolveTankTanks() {
	tanks := g.Store.Tanks.All()
	for i := 0; i < len(tanks); i++ {
		for j := i + 1; j < len(tanks); j++ {
			a, b := tanks[i], tanks[j]
			if !a.Collider().Collides(b.Collider()) {
				continue
			}
			g.destroyTank(a, event.CauseTankCrash)
			g.destroyTank(b, event.CauseTankCrash)
		}
	}
}

// resolveTankBullets destroys every tank overlapping a bullet and consumes
// every bullet overlapping a tank. Tanks already destroyed this tick still
// consume the bullets they overlap.
func (g *Game) resolveTankBullets() {
	for _, tank := range g.Store.Tanks.All() {
		for _, bullet := range g.Store.Bullets.All() {
			if !tank.Collider().Collides(bullet.Collider()) {
				continue
			}
			if bullet.Active {
				bullet.Active = false
				g.EventBus.Publish(event.NewBulletEvent(event.BulletExpired, g, uint64(bullet.ID), bullet.Position, bullet.Bounces))
			}
			g.destroyTank(tank, event.CauseBullet)
		}
	}
}

// resolveBulletWalls reflects bullets approaching a wall they touch and
// expires those that run out of bounces.
func (g *Game) resolveBulletWalls() {
	for _, bullet := range g.Store.Bullets.All() {
		for _, wall := range g.Store.Walls {
			if !bullet.Active {
				break
			}
			prox, touching := wall.Segment().Touches(bullet.Position, bullet.Radius)
			if !touching {
				continue
			}
			approaching := bullet.Velocity.Dot(prox.ToLine) > 0
			if prox.Across == 0 {
				approaching = bullet.Velocity.Dot(wall.Normal) != 0
			}
			if !approaching {
				continue
			}
			g.bounce(bullet, wall, prox)
		}
	}
}

func (g *Game) bounce(bullet *entity.Bullet, wall entity.Wall, prox physics.SegmentProximity) {
	// back out to the side the bullet came from, then reflect
	var away physics.Vector2D
	if prox.Across > 0 {
		away = prox.ToLine.Scale(-1 / prox.Across)
	} else if bullet.Velocity.Dot(wall.Normal) > 0 {
		away = wall.Normal.Scale(-1)
	} else {
		away = wall.Normal
	}
	bullet.Position = bullet.Position.Add(away.Scale(bullet.Radius - prox.Across))
	bullet.Reflect(wall.Normal)

	if !bullet.AddBounce() {
		bullet.Active = false
		g.EventBus.Publish(event.NewBulletEvent(event.BulletExpired, g, uint64(bullet.ID), bullet.Position, bullet.Bounces))
		return
	}
	g.EventBus.Publish(event.NewBulletEvent(event.BulletBounced, g, uint64(bullet.ID), bullet.Position, bullet.Bounces))
}

// destroyTank marks a tank destroyed and records the death against its
// owner. Destroying an already destroyed tank does nothing.
func (g *Game) destroyTank(tank *entity.Tank, cause event.Cause) {
	if !tank.Active {
		return
	}
	tank.Active = false

	owner, ok := g.Store.OwnerOf(tank)
	if !ok {
		return
	}
	owner.Death()

	ctx := logging.WithCorrelationID(context.Background(), owner.SessionID)
	g.logger.Info(ctx, "tank destroyed", "port", owner.Port, "cause", string(cause), "deaths", owner.Deaths)
	g.EventBus.Publish(event.NewTankEvent(event.TankDestroyed, g, uint64(tank.ID), uint64(owner.ID), tank.Position, cause))
}
