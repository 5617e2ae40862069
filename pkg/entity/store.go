package entity

import (
	"math/rand/v2"

	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// Store owns every entity of one running world.
type Store struct {
	nextID ID

	Players *Pool[*Player]
	Tanks   *Pool[*Tank]
	Turrets *Pool[*Turret]
	Bullets *Pool[*Bullet]

	Walls  []Wall
	Spawns []Spawn

	byPort map[uint16]ID
}

// NewStore creates a store for a map.
func NewStore(walls []Wall, spawns []Spawn) *Store {
	return &Store{
		Players: NewPool[*Player](),
		Tanks:   NewPool[*Tank](),
		Turrets: NewPool[*Turret](),
		Bullets: NewPool[*Bullet](),
		Walls:   walls,
		Spawns:  spawns,
		byPort:  make(map[uint16]ID),
	}
}

// NextID returns a fresh identifier. IDs are never reused within a store.
func (s *Store) NextID() ID {
	s.nextID++
	return s.nextID
}

// AddPlayer assigns the player an ID and indexes it by port.
func (s *Store) AddPlayer(p *Player) {
	p.ID = s.NextID()
	s.Players.Add(p)
	s.byPort[p.Port] = p.ID
}

// PlayerByPort finds the player registered for a source port.
func (s *Store) PlayerByPort(port uint16) (*Player, bool) {
	id, ok := s.byPort[port]
	if !ok {
		return nil, false
	}
	return s.Players.Get(id)
}

// RemovePlayer deletes a player together with its tank and turret.
func (s *Store) RemovePlayer(p *Player) {
	s.removeTank(p.TankID)
	p.TankID = 0
	s.Players.Remove(p.ID)
	if s.byPort[p.Port] == p.ID {
		delete(s.byPort, p.Port)
	}
}

// HasSecret reports whether any player currently holds the given secret.
func (s *Store) HasSecret(secret protocol.Secret) bool {
	for _, p := range s.Players.All() {
		if p.Secret == secret {
			return true
		}
	}
	return false
}

// SpawnTank places a new tank for the player at position, replacing any tank
// the player already had. The respawn timer is cleared.
func (s *Store) SpawnTank(p *Player, position physics.Vector2D) *Tank {
	s.removeTank(p.TankID)

	tank := &Tank{
		BaseEntity:       BaseEntity{ID: s.NextID(), Position: position, Active: true},
		OwnerID:          p.ID,
		Radius:           p.Limits.TankRadius,
		TrackMaxVelocity: p.Limits.TrackMaxVelocity,
	}
	turret := &Turret{
		ID:          s.NextID(),
		TankID:      tank.ID,
		MaxVelocity: p.Limits.TurretMaxVelocity,
		Active:      true,
	}
	tank.TurretID = turret.ID
	s.Tanks.Add(tank)
	s.Turrets.Add(turret)

	p.TankID = tank.ID
	p.RespawnTimer.Stop()
	return tank
}

func (s *Store) removeTank(id ID) {
	if id == 0 {
		return
	}
	if tank, ok := s.Tanks.Get(id); ok {
		s.Turrets.Remove(tank.TurretID)
	}
	s.Tanks.Remove(id)
}

// TankOf returns the player's live tank, if any.
func (s *Store) TankOf(p *Player) (*Tank, bool) {
	if p.TankID == 0 {
		return nil, false
	}
	return s.Tanks.Get(p.TankID)
}

// TurretOf returns the turret mounted on a tank.
func (s *Store) TurretOf(t *Tank) (*Turret, bool) {
	return s.Turrets.Get(t.TurretID)
}

// OwnerOf returns the player owning a tank.
func (s *Store) OwnerOf(t *Tank) (*Player, bool) {
	return s.Players.Get(t.OwnerID)
}

// AddBullet assigns the bullet an ID and stores it.
func (s *Store) AddBullet(b *Bullet) {
	b.ID = s.NextID()
	b.Active = true
	s.Bullets.Add(b)
}

// RandomSpawn picks a spawn point uniformly. Maps without spawns use the origin.
func (s *Store) RandomSpawn(rng *rand.Rand) physics.Vector2D {
	if len(s.Spawns) == 0 {
		return physics.Vector2D{}
	}
	return s.Spawns[rng.IntN(len(s.Spawns))].Position
}

// Sweep removes every entity marked inactive and returns the removed tanks and
// bullets. Turrets go with their tanks.
func (s *Store) Sweep() (tanks []*Tank, bullets []*Bullet) {
	tanks = s.Tanks.RemoveIf(func(t *Tank) bool { return !t.Active })
	for _, t := range tanks {
		s.Turrets.Remove(t.TurretID)
	}
	s.Turrets.RemoveIf(func(t *Turret) bool { return !t.Active })
	bullets = s.Bullets.RemoveIf(func(b *Bullet) bool { return !b.Active })
	return tanks, bullets
}
