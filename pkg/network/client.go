package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

var (
	// ErrServerSilent is returned when nothing arrives within the read timeout.
	ErrServerSilent = errors.New("server silent")
	// ErrDisconnected is returned when the server evicts the client.
	ErrDisconnected = errors.New("disconnected by server")
	// ErrNotBound is returned by Run before Bind.
	ErrNotBound = errors.New("client socket not bound")
)

// Input is what a controller wants its tank to do next.
type Input struct {
	TrackAccelTarget  [2]float32
	TurretAccelTarget float32
	Shoot             bool
}

// Controller turns the latest world state into input.
type Controller interface {
	Control(state protocol.State) Input
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(state protocol.State) Input

// Control calls f.
func (f ControllerFunc) Control(state protocol.State) Input {
	return f(state)
}

// GameClient plays one tank. It answers each State with a Control and
// reconnects when the server goes quiet or disconnects it.
type GameClient struct {
	server      netip.AddrPort
	controller  Controller
	service     *NetworkService
	logger      *logging.Logger
	readTimeout time.Duration

	conn *net.UDPConn

	mu     sync.Mutex
	secret protocol.Secret
	walls  []protocol.Wall
	states uint64
}

// NewGameClient creates a client for the server at server.
func NewGameClient(server netip.AddrPort, controller Controller, service *NetworkService, readTimeout time.Duration, logger *logging.Logger) *GameClient {
	return &GameClient{
		server:      netip.AddrPortFrom(server.Addr().Unmap(), server.Port()),
		controller:  controller,
		service:     service,
		logger:      logger.With("component", "client"),
		readTimeout: readTimeout,
	}
}

// Bind opens the local socket. Port 0 picks an ephemeral port.
func (c *GameClient) Bind(localAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", localAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind client socket: %w", err)
	}
	c.conn = conn
	return nil
}

// LocalPort returns the bound port.
func (c *GameClient) LocalPort() uint16 {
	if c.conn == nil {
		return 0
	}
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort().Port()
}

// Close releases the socket.
func (c *GameClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Secret returns the secret issued by the last MapChange.
func (c *GameClient) Secret() protocol.Secret {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secret
}

// Walls returns the walls of the current map.
func (c *GameClient) Walls() []protocol.Wall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walls
}

// StatesReceived counts States answered so far.
func (c *GameClient) StatesReceived() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states
}

// Run connects and plays until ctx is cancelled.
func (c *GameClient) Run(ctx context.Context) error {
	if c.conn == nil {
		return ErrNotBound
	}
	// Unblock a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for ctx.Err() == nil {
		err := c.service.ExecuteWithRetry(ctx, func() error {
			return c.connect(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn(ctx, "could not reach server", "server", c.server.String(), "error", err.Error())
			if err := sleep(ctx, c.readTimeout); err != nil {
				break
			}
			continue
		}

		c.logger.Info(ctx, "connected", "server", c.server.String(), "walls", len(c.Walls()))
		if err := c.play(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn(ctx, "connection lost, reconnecting", "error", err.Error())
		}
	}
	return nil
}

// connect sends Connect and waits for the MapChange carrying our secret.
func (c *GameClient) connect(ctx context.Context) error {
	data := protocol.EncodeClient(protocol.Connect{SelfPort: c.LocalPort()})
	if _, err := c.conn.WriteToUDPAddrPort(data, c.server); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	deadline := time.Now().Add(c.readTimeout)
	for {
		msg, err := c.readMessage(ctx, deadline)
		if err != nil {
			return err
		}
		if mc, ok := msg.(protocol.MapChange); ok {
			c.mu.Lock()
			c.secret = mc.Secret
			c.walls = mc.Walls
			c.mu.Unlock()
			return nil
		}
	}
}

// play answers States until the server goes silent or disconnects us.
func (c *GameClient) play(ctx context.Context) error {
	for {
		msg, err := c.readMessage(ctx, time.Now().Add(c.readTimeout))
		if err != nil {
			return err
		}
		secret := c.Secret()

		switch m := msg.(type) {
		case protocol.Disconnected:
			return ErrDisconnected
		case protocol.MapChange:
			if m.Secret == secret {
				c.mu.Lock()
				c.walls = m.Walls
				c.mu.Unlock()
			}
		case protocol.State:
			if m.Secret != secret {
				continue
			}
			if err := c.sendControl(secret, c.controller.Control(m)); err != nil {
				c.logger.Warn(ctx, "send control failed", "error", err.Error())
			}
			c.mu.Lock()
			c.states++
			c.mu.Unlock()
		}
	}
}

func (c *GameClient) sendControl(secret protocol.Secret, in Input) error {
	data := protocol.EncodeClient(protocol.Control{
		SelfPort:          c.LocalPort(),
		Secret:            secret,
		TrackAccelTarget:  in.TrackAccelTarget,
		TurretAccelTarget: in.TurretAccelTarget,
		Shoot:             in.Shoot,
	})
	_, err := c.conn.WriteToUDPAddrPort(data, c.server)
	return err
}

// readMessage returns the next decodable datagram from the server. Datagrams
// from other sources are ignored.
func (c *GameClient) readMessage(ctx context.Context, deadline time.Time) (protocol.ServerMessage, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, protocol.MaxServerMessageSize)
	for {
		n, from, err := c.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, ErrServerSilent
			}
			return nil, err
		}
		if netip.AddrPortFrom(from.Addr().Unmap(), from.Port()) != c.server {
			continue
		}
		msg, err := protocol.DecodeServer(buf[:n])
		if err != nil {
			c.logger.Debug(ctx, "undecodable datagram from server", "size", n, "error", err.Error())
			continue
		}
		return msg, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
