// pkg/engine/game.go
package engine

import (
	"context"
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/opd-ai/go-tanks/pkg/config"
	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/maps"
	"github.com/opd-ai/go-tanks/pkg/protocol"
	"github.com/opd-ai/go-tanks/pkg/session"
	"github.com/opd-ai/go-tanks/pkg/validation"
)

// Datagram is one inbound packet.
type Datagram struct {
	Source netip.AddrPort
	Data   []byte
}

// Outgoing is one packet the tick wants sent.
type Outgoing struct {
	Destination netip.AddrPort
	Message     protocol.ServerMessage
	Data        []byte
}

// Game is the authoritative simulation of one arena. All of its state is
// owned by the goroutine calling Tick.
type Game struct {
	Config   *config.GameConfig
	Store    *entity.Store
	Sessions *session.Manager
	EventBus *event.Bus

	CurrentTick uint64
	// TimeStep is the simulated duration of one tick.
	TimeStep time.Duration
	SubSteps int

	validator *validation.Validator
	rng       *rand.Rand
	secrets   session.SecretSource
	logger    *logging.Logger
	walls     []protocol.Wall
}

// Option customizes a Game.
type Option func(*Game)

// WithSecretSource replaces the random secret generator.
func WithSecretSource(source session.SecretSource) Option {
	return func(g *Game) { g.secrets = source }
}

// WithEventBus publishes lifecycle events on bus instead of a private bus.
func WithEventBus(bus *event.Bus) Option {
	return func(g *Game) { g.EventBus = bus }
}

// WithRand replaces the spawn RNG.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// NewGame creates a game on the given map.
func NewGame(cfg *config.GameConfig, arena *maps.Map, logger *logging.Logger, opts ...Option) *Game {
	g := &Game{
		Config:   cfg,
		Store:    entity.NewStore(arena.Walls, arena.Spawns),
		EventBus: event.NewEventBus(),
		TimeStep: cfg.Simulation.TickInterval.Duration,
		SubSteps: max(cfg.Simulation.SubSteps, 1),
		validator: validation.NewValidator(validation.Policy{
			AllowRemote:         cfg.NetworkConfig.AllowRemote,
			MaxDatagramsPerTick: cfg.NetworkConfig.MaxDatagramsPerTick,
		}),
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		seed := cfg.Simulation.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	g.Sessions = session.NewManager(g.Store, session.Config{
		InactivityTimeout: cfg.InactivityTimeout.Duration,
		Limits:            cfg.PlayerLimits(),
	}, g.rng, g.secrets, g.EventBus, logger)

	for _, w := range g.Store.Walls {
		g.walls = append(g.walls, w.Snapshot())
	}
	return g
}

// Tick advances the world by one fixed time step. Every inbound datagram is
// applied before physics runs, and the returned packets reflect this tick's
// state.
func (g *Game) Tick(inbound []Datagram) []Outgoing {
	g.CurrentTick++
	var out []Outgoing

	out = g.receiveInputs(inbound, out)
	g.applyControls()

	step := g.TimeStep.Seconds() / float64(g.SubSteps)
	for i := 0; i < g.SubSteps; i++ {
		g.integrate(step)
		g.resolveCollisions()
	}

	out = g.postTick(out)
	return g.broadcast(out)
}

// receiveInputs admits, decodes and dispatches the tick's datagrams.
func (g *Game) receiveInputs(inbound []Datagram, out []Outgoing) []Outgoing {
	ctx := context.Background()
	g.validator.BeginTick()

	for _, d := range inbound {
		if err := g.validator.Admit(d.Source, d.Data); err != nil {
			g.logger.Debug(ctx, "datagram dropped", "addr", d.Source.String(), "error", err.Error())
			continue
		}
		msg, err := protocol.DecodeClient(d.Data)
		if err != nil {
			g.logger.Debug(ctx, "undecodable datagram", "addr", d.Source.String(), "size", len(d.Data), "error", err.Error())
			continue
		}
		if err := validation.ValidateClientMessage(msg); err != nil {
			g.logger.Debug(ctx, "invalid control", "addr", d.Source.String(), "error", err.Error())
			continue
		}

		switch m := msg.(type) {
		case protocol.Connect:
			out = g.handleConnect(d.Source, m, out)
		case protocol.Control:
			g.Sessions.HandleControl(d.Source, m)
		}
	}
	return out
}

func (g *Game) handleConnect(source netip.AddrPort, msg protocol.Connect, out []Outgoing) []Outgoing {
	p, outcome, err := g.Sessions.HandleConnect(source, msg.SelfPort)
	if err != nil {
		g.logger.Error(context.Background(), "failed to admit player", err, "addr", source.String())
		return out
	}
	if outcome == session.Rejected {
		return out
	}
	return g.send(out, p.Destination(), protocol.MapChange{Secret: p.Secret, Walls: g.walls})
}

// send encodes msg and queues it for dest. Encoding failures are logged and
// the packet is dropped.
func (g *Game) send(out []Outgoing, dest netip.AddrPort, msg protocol.ServerMessage) []Outgoing {
	data, err := protocol.EncodeServer(msg)
	if err != nil {
		g.logger.Error(context.Background(), "failed to encode message", err, "addr", dest.String())
		return out
	}
	return append(out, Outgoing{Destination: dest, Message: msg, Data: data})
}

// PlayerCount returns the number of connected players.
func (g *Game) PlayerCount() int {
	return g.Store.Players.Len()
}
