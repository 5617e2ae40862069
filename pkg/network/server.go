// Package network moves tank game datagrams over UDP. GameServer owns the
// server socket and the tick scheduler; GameClient is a thin bot client.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-tanks/pkg/engine"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// readBufferSize leaves room to notice oversized datagrams instead of
// silently truncating them to a valid length.
const readBufferSize = 2048

// ErrNotListening is returned when the server socket is not bound.
var ErrNotListening = errors.New("server is not listening")

// GameServer binds the game to a UDP socket and drives it on a fixed tick.
type GameServer struct {
	game       *engine.Game
	logger     *logging.Logger
	tickRate   time.Duration
	inbound    chan engine.Datagram
	conn       *net.UDPConn
	mu         sync.RWMutex
	readerDone chan struct{}

	lastTick atomic.Int64
	dropped  atomic.Uint64
}

// NewGameServer creates a server for game. Lifecycle events are logged at
// debug level.
func NewGameServer(game *engine.Game, logger *logging.Logger) *GameServer {
	nc := game.Config.NetworkConfig
	s := &GameServer{
		game:     game,
		logger:   logger.With("component", "server"),
		tickRate: game.Config.Simulation.TickInterval.Duration,
		inbound:  make(chan engine.Datagram, max(nc.QueueSize, 1)),
	}
	game.EventBus.SubscribeAll(s.logEvent)
	return s
}

// Listen binds the UDP socket and starts the reader goroutine.
func (s *GameServer) Listen(address string) error {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.readerDone = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop(conn, s.readerDone)

	s.logger.Info(context.Background(), "game server listening", "addr", conn.LocalAddr().String())
	return nil
}

// readLoop queues datagrams for the tick goroutine. When the queue is full
// the datagram is dropped, as the network would have done.
func (s *GameServer) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, readBufferSize)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn(context.Background(), "udp read failed", "error", err.Error())
			continue
		}
		d := engine.Datagram{
			Source: netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
			Data:   bytes.Clone(buf[:n]),
		}
		select {
		case s.inbound <- d:
		default:
			s.dropped.Add(1)
		}
	}
}

// Serve ticks the game until ctx is cancelled.
func (s *GameServer) Serve(ctx context.Context) error {
	if !s.IsListening() {
		return ErrNotListening
	}
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one game tick over every datagram queued so far and sends the
// results. It must only be called from one goroutine.
func (s *GameServer) Tick() {
	pending := len(s.inbound)
	batch := make([]engine.Datagram, 0, pending)
	for i := 0; i < pending; i++ {
		batch = append(batch, <-s.inbound)
	}

	out := s.game.Tick(batch)

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		for _, o := range out {
			if _, err := conn.WriteToUDPAddrPort(o.Data, o.Destination); err != nil {
				s.logger.Warn(context.Background(), "send failed",
					"addr", o.Destination.String(),
					"message", messageName(o.Message),
					"error", err.Error(),
				)
			}
		}
	}

	if n := s.dropped.Swap(0); n > 0 {
		s.logger.Warn(context.Background(), "inbound queue full, datagrams dropped", "count", n)
	}
	s.lastTick.Store(time.Now().UnixNano())
}

// Close unbinds the socket and waits for the reader to exit.
func (s *GameServer) Close() error {
	s.mu.Lock()
	conn, done := s.conn, s.readerDone
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	s.logger.Info(context.Background(), "game server stopped")
	return err
}

// LocalAddr returns the bound address, or the zero value when not bound.
func (s *GameServer) LocalAddr() netip.AddrPort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return netip.AddrPort{}
	}
	addr := s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

// ListenAddr returns the bound address as a string, or "" when not bound.
func (s *GameServer) ListenAddr() string {
	if addr := s.LocalAddr(); addr.IsValid() {
		return addr.String()
	}
	return ""
}

// IsListening reports whether the socket is bound.
func (s *GameServer) IsListening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// LastTick returns when the last tick finished, or the zero time.
func (s *GameServer) LastTick() time.Time {
	ns := s.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *GameServer) logEvent(e event.Event) {
	ctx := context.Background()
	switch ev := e.(type) {
	case *event.PlayerEvent:
		s.logger.Debug(logging.WithCorrelationID(ctx, ev.SessionID), string(ev.GetType()),
			"player", ev.PlayerID, "port", ev.Port, "deaths", ev.Deaths)
	case *event.TankEvent:
		s.logger.Debug(ctx, string(ev.GetType()),
			"tank", ev.TankID, "owner", ev.OwnerID, "cause", string(ev.Cause))
	case *event.BulletEvent:
		s.logger.Debug(ctx, string(ev.GetType()), "bullet", ev.BulletID, "bounces", ev.Bounces)
	}
}

func messageName(msg protocol.ServerMessage) string {
	switch msg.(type) {
	case protocol.MapChange:
		return "map_change"
	case protocol.State:
		return "state"
	case protocol.Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("%T", msg)
}
