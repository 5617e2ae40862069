package entity

import (
	"net/netip"
	"time"

	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// Controls are the last inputs accepted from a player.
type Controls struct {
	TrackAccelTarget  physics.Vector2D
	TurretAccelTarget float64
	Shoot             bool
}

// Limits are the tunable values captured when a player connects.
type Limits struct {
	TankRadius            float64
	TrackMaxVelocity      physics.Vector2D
	TrackMaxAcceleration  physics.Vector2D
	TurretMaxVelocity     float64
	TurretMaxAcceleration float64
	ShootDelay            time.Duration
	BulletRadius          float64
	BulletSpeed           float64
	BulletMaxBounces      int
}

// Player is a connected client, identified by its source port and secret.
type Player struct {
	ID        ID
	Port      uint16
	Addr      netip.Addr
	Secret    protocol.Secret
	SessionID string

	Inactivity   time.Duration
	Deaths       uint32
	RespawnTimer Timer
	ShootTimer   Timer

	Controls Controls
	Limits   Limits

	// TankID is zero while the player is waiting to respawn.
	TankID ID
}

// GetID returns the player's identifier
func (p *Player) GetID() ID {
	return p.ID
}

// Destination is the address State messages for this player are sent to.
func (p *Player) Destination() netip.AddrPort {
	return netip.AddrPortFrom(p.Addr, p.Port)
}

// ResetInput clears the last input given by the player.
func (p *Player) ResetInput() {
	p.Controls = Controls{}
}

// Death records the loss of the player's tank: input is cleared, the death
// counter increments and the respawn countdown starts.
func (p *Player) Death() {
	p.ResetInput()
	p.Deaths++
	p.TankID = 0
	p.RespawnTimer.Start()
}
