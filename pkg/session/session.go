// Package session maps (source port, secret) pairs to players and keeps their
// sessions alive.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// maxSecretAttempts bounds the search for a secret not held by another player.
const maxSecretAttempts = 16

// ErrNoFreeSecret is returned when no unused secret could be generated.
var ErrNoFreeSecret = errors.New("could not generate an unused secret")

// SecretSource produces candidate secrets for new players.
type SecretSource func() (protocol.Secret, error)

// Outcome describes what a Connect did.
type Outcome int

const (
	// Rejected means the claimed port did not match the source port.
	Rejected Outcome = iota
	Joined
	Reconnected
)

func (o Outcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case Reconnected:
		return "reconnected"
	default:
		return "rejected"
	}
}

// Config holds the session tunables.
type Config struct {
	InactivityTimeout time.Duration
	Limits            entity.Limits
}

// Manager owns player admission and eviction. It is driven from the tick
// goroutine only.
type Manager struct {
	store     *entity.Store
	config    Config
	rng       *rand.Rand
	newSecret SecretSource
	bus       *event.Bus
	logger    *logging.Logger
}

// NewManager creates a manager over store. A nil secrets source uses
// protocol.NewSecret.
func NewManager(store *entity.Store, config Config, rng *rand.Rand, secrets SecretSource, bus *event.Bus, logger *logging.Logger) *Manager {
	if secrets == nil {
		secrets = protocol.NewSecret
	}
	return &Manager{
		store:     store,
		config:    config,
		rng:       rng,
		newSecret: secrets,
		bus:       bus,
		logger:    logger,
	}
}

// HandleConnect admits a Connect from source. A claimed port different from
// the source port is rejected without any reply. A known port keeps its secret
// and gets a fresh tank, but only when the Connect comes from the address the
// port was bound from; an unknown port becomes a new player.
func (m *Manager) HandleConnect(source netip.AddrPort, claimedPort uint16) (*entity.Player, Outcome, error) {
	if source.Port() != claimedPort {
		m.logger.Debug(context.Background(), "connect port mismatch", "addr", source.String(), "claimed_port", claimedPort)
		return nil, Rejected, nil
	}

	if p, ok := m.store.PlayerByPort(claimedPort); ok {
		if p.Addr != source.Addr() {
			m.logger.Debug(context.Background(), "connect from another address for a bound port",
				"addr", source.String(), "port", claimedPort)
			return nil, Rejected, nil
		}
		p.ResetInput()
		p.Inactivity = 0
		m.Spawn(p)
		ctx := logging.WithCorrelationID(context.Background(), p.SessionID)
		m.logger.Info(ctx, "player reconnected", "port", p.Port, "deaths", p.Deaths)
		m.bus.Publish(event.NewPlayerEvent(event.PlayerReconnected, m, uint64(p.ID), p.Port, p.SessionID, p.Deaths))
		return p, Reconnected, nil
	}

	secret, err := m.freshSecret()
	if err != nil {
		return nil, Rejected, err
	}
	p := &entity.Player{
		Port:      claimedPort,
		Addr:      source.Addr(),
		Secret:    secret,
		SessionID: uuid.NewString(),
		Limits:    m.config.Limits,
	}
	m.store.AddPlayer(p)
	m.Spawn(p)

	ctx := logging.WithCorrelationID(context.Background(), p.SessionID)
	m.logger.Info(ctx, "player joined", "port", p.Port, "addr", source.Addr().String(), "players", m.store.Players.Len())
	m.bus.Publish(event.NewPlayerEvent(event.PlayerJoined, m, uint64(p.ID), p.Port, p.SessionID, 0))
	return p, Joined, nil
}

// freshSecret draws secrets until one is not held by a connected player.
func (m *Manager) freshSecret() (protocol.Secret, error) {
	for i := 0; i < maxSecretAttempts; i++ {
		s, err := m.newSecret()
		if err != nil {
			return protocol.Secret{}, err
		}
		if !s.IsZero() && !m.store.HasSecret(s) {
			return s, nil
		}
	}
	return protocol.Secret{}, ErrNoFreeSecret
}

// HandleControl applies a Control from source if the claimed port matches the
// source port, the address matches the one the port was bound from and the
// secret matches that port's player. Anything else is
// dropped silently. It reports whether the inputs were accepted.
func (m *Manager) HandleControl(source netip.AddrPort, msg protocol.Control) bool {
	if source.Port() != msg.SelfPort {
		return false
	}
	p, ok := m.store.PlayerByPort(msg.SelfPort)
	if !ok || p.Addr != source.Addr() || subtle.ConstantTimeCompare(p.Secret[:], msg.Secret[:]) != 1 {
		return false
	}

	p.Controls = entity.Controls{
		TrackAccelTarget:  physics.FromFloat32(msg.TrackAccelTarget),
		TurretAccelTarget: float64(msg.TurretAccelTarget),
		Shoot:             msg.Shoot,
	}
	p.Inactivity = 0
	return true
}

// TickInactivity ages every session by elapsed and removes players whose
// inactivity exceeds the timeout, together with their tanks. Each evicted
// player is returned exactly once.
func (m *Manager) TickInactivity(elapsed time.Duration) []*entity.Player {
	var evicted []*entity.Player
	for _, p := range m.store.Players.All() {
		p.Inactivity += elapsed
		if p.Inactivity > m.config.InactivityTimeout {
			evicted = append(evicted, p)
		}
	}

	for _, p := range evicted {
		m.store.RemovePlayer(p)
		ctx := logging.WithCorrelationID(context.Background(), p.SessionID)
		m.logger.Info(ctx, "player timed out", "port", p.Port, "deaths", p.Deaths)
		m.bus.Publish(event.NewPlayerEvent(event.PlayerLeft, m, uint64(p.ID), p.Port, p.SessionID, p.Deaths))
	}
	return evicted
}

// Spawn gives the player a new tank at a random spawn point.
func (m *Manager) Spawn(p *entity.Player) *entity.Tank {
	tank := m.store.SpawnTank(p, m.store.RandomSpawn(m.rng))
	m.bus.Publish(event.NewTankEvent(event.TankSpawned, m, uint64(tank.ID), uint64(p.ID), tank.Position, event.CauseNone))
	return tank
}
