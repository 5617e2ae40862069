package engine

import (
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// Snapshot lists every tank and bullet, truncated to what one State message
// can carry.
func (g *Game) Snapshot() ([]protocol.Tank, []protocol.Bullet) {
	all := g.Store.Tanks.All()
	tanks := make([]protocol.Tank, 0, min(len(all), protocol.MaxListEntries))
	for _, tank := range all {
		if len(tanks) == protocol.MaxListEntries {
			break
		}
		turret, _ := g.Store.TurretOf(tank)
		tanks = append(tanks, tank.Snapshot(turret))
	}

	allBullets := g.Store.Bullets.All()
	bullets := make([]protocol.Bullet, 0, min(len(allBullets), protocol.MaxListEntries))
	for _, bullet := range allBullets {
		if len(bullets) == protocol.MaxListEntries {
			break
		}
		bullets = append(bullets, bullet.Snapshot())
	}
	return tanks, bullets
}

// broadcast queues one State per connected player, stamped with that
// player's secret. The tank and bullet lists are shared.
func (g *Game) broadcast(out []Outgoing) []Outgoing {
	tanks, bullets := g.Snapshot()
	for _, p := range g.Store.Players.All() {
		out = g.send(out, p.Destination(), protocol.State{
			Secret:  p.Secret,
			Tanks:   tanks,
			Bullets: bullets,
		})
	}
	return out
}
