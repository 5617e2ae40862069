package session

import (
	"errors"
	"math/rand/v2"
	"net/netip"
	"testing"
	"time"

	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/event"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// sequentialSecrets returns secrets 1, 2, 3, ... in order.
func sequentialSecrets() SecretSource {
	var n byte
	return func() (protocol.Secret, error) {
		n++
		return protocol.Secret{15: n}, nil
	}
}

func newTestManager(t *testing.T, secrets SecretSource) (*Manager, *entity.Store, *event.Bus) {
	t.Helper()
	spawns := []entity.Spawn{{Position: physics.Vector2D{X: 10, Y: 20}}}
	store := entity.NewStore(nil, spawns)
	bus := event.NewEventBus()
	config := Config{
		InactivityTimeout: 5 * time.Second,
		Limits: entity.Limits{
			TankRadius:       12,
			TrackMaxVelocity: physics.Vector2D{X: 500, Y: 500},
		},
	}
	m := NewManager(store, config, rand.New(rand.NewPCG(1, 1)), secrets, bus, logging.Discard())
	return m, store, bus
}

func addr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port)
}

func TestHandleConnectNewPlayer(t *testing.T) {
	m, store, bus := newTestManager(t, sequentialSecrets())
	var joined []*event.PlayerEvent
	bus.Subscribe(event.PlayerJoined, func(e event.Event) { joined = append(joined, e.(*event.PlayerEvent)) })

	p, outcome, err := m.HandleConnect(addr(5000), 5000)
	if err != nil || outcome != Joined {
		t.Fatalf("HandleConnect() = %v, %v, expected Joined", outcome, err)
	}
	if p.Secret != (protocol.Secret{15: 1}) {
		t.Errorf("Secret = %v, expected the first generated secret", p.Secret)
	}
	if p.SessionID == "" {
		t.Error("SessionID is empty")
	}
	tank, ok := store.TankOf(p)
	if !ok {
		t.Fatal("new player has no tank")
	}
	if tank.Position != (physics.Vector2D{X: 10, Y: 20}) {
		t.Errorf("tank position = %v, expected the spawn point", tank.Position)
	}
	if tank.OwnerID != p.ID {
		t.Errorf("tank.OwnerID = %d, expected %d", tank.OwnerID, p.ID)
	}
	if len(joined) != 1 || joined[0].Port != 5000 {
		t.Errorf("PlayerJoined events = %v", joined)
	}
}

func TestHandleConnectPortMismatch(t *testing.T) {
	m, store, _ := newTestManager(t, sequentialSecrets())

	p, outcome, err := m.HandleConnect(addr(5001), 5000)
	if p != nil || outcome != Rejected || err != nil {
		t.Errorf("HandleConnect() = %v, %v, %v, expected rejection", p, outcome, err)
	}
	if store.Players.Len() != 0 {
		t.Errorf("players = %d after spoofed connect, expected 0", store.Players.Len())
	}
}

func TestHandleConnectReconnect(t *testing.T) {
	m, store, bus := newTestManager(t, sequentialSecrets())
	reconnects := 0
	bus.Subscribe(event.PlayerReconnected, func(e event.Event) { reconnects++ })

	first, _, _ := m.HandleConnect(addr(5000), 5000)
	secret := first.Secret
	oldTank := first.TankID
	first.Controls = entity.Controls{Shoot: true, TurretAccelTarget: 1}
	first.Inactivity = 3 * time.Second
	first.RespawnTimer.Start()

	second, outcome, err := m.HandleConnect(addr(5000), 5000)
	if err != nil || outcome != Reconnected {
		t.Fatalf("HandleConnect() = %v, %v, expected Reconnected", outcome, err)
	}
	if second != first {
		t.Error("reconnect created a new player")
	}
	if second.Secret != secret {
		t.Error("reconnect changed the secret")
	}
	if second.Controls != (entity.Controls{}) {
		t.Errorf("reconnect kept input %+v", second.Controls)
	}
	if second.Inactivity != 0 {
		t.Errorf("Inactivity = %v, expected 0", second.Inactivity)
	}
	if second.RespawnTimer.Running {
		t.Error("reconnect left the respawn timer running")
	}
	if second.TankID == oldTank || store.Tanks.Len() != 1 {
		t.Errorf("tanks = %d, TankID %d (old %d): expected one fresh tank", store.Tanks.Len(), second.TankID, oldTank)
	}
	if reconnects != 1 {
		t.Errorf("PlayerReconnected events = %d, expected 1", reconnects)
	}
}

func TestHandleConnectFromOtherAddress(t *testing.T) {
	m, store, bus := newTestManager(t, sequentialSecrets())
	reconnects := 0
	bus.Subscribe(event.PlayerReconnected, func(e event.Event) { reconnects++ })

	owner, _, _ := m.HandleConnect(addr(5000), 5000)
	tankID := owner.TankID

	other := netip.MustParseAddrPort("127.0.0.2:5000")
	p, outcome, err := m.HandleConnect(other, 5000)
	if p != nil || outcome != Rejected || err != nil {
		t.Fatalf("HandleConnect() = %v, %v, %v, expected rejection", p, outcome, err)
	}
	if owner.Addr != addr(5000).Addr() {
		t.Errorf("Addr = %v, expected it to stay 127.0.0.1", owner.Addr)
	}
	if owner.TankID != tankID || store.Players.Len() != 1 {
		t.Error("rejected connect changed the session")
	}
	if reconnects != 0 {
		t.Errorf("PlayerReconnected events = %d, expected 0", reconnects)
	}
}

func TestSecretsAreUnique(t *testing.T) {
	// the source repeats its first value before producing a new one
	calls := 0
	repeating := func() (protocol.Secret, error) {
		calls++
		if calls <= 2 {
			return protocol.Secret{0: 7}, nil
		}
		return protocol.Secret{0: 8}, nil
	}
	m, _, _ := newTestManager(t, repeating)

	a, _, _ := m.HandleConnect(addr(5000), 5000)
	b, _, err := m.HandleConnect(addr(5001), 5001)
	if err != nil {
		t.Fatalf("HandleConnect() error = %v", err)
	}
	if a.Secret == b.Secret {
		t.Errorf("two players share secret %v", a.Secret)
	}
}

func TestSecretExhaustion(t *testing.T) {
	constant := func() (protocol.Secret, error) { return protocol.Secret{1}, nil }
	m, _, _ := newTestManager(t, constant)

	if _, _, err := m.HandleConnect(addr(5000), 5000); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	if _, _, err := m.HandleConnect(addr(5001), 5001); !errors.Is(err, ErrNoFreeSecret) {
		t.Errorf("second connect error = %v, expected ErrNoFreeSecret", err)
	}

	failing := func() (protocol.Secret, error) { return protocol.Secret{}, errors.New("entropy") }
	m2, _, _ := newTestManager(t, failing)
	if _, _, err := m2.HandleConnect(addr(5000), 5000); err == nil {
		t.Error("connect succeeded with a failing secret source")
	}
}

func TestHandleControl(t *testing.T) {
	m, _, _ := newTestManager(t, sequentialSecrets())
	p, _, _ := m.HandleConnect(addr(5000), 5000)
	p.Inactivity = 4 * time.Second

	valid := protocol.Control{
		SelfPort:          5000,
		Secret:            p.Secret,
		TrackAccelTarget:  [2]float32{1, -2},
		TurretAccelTarget: 0.25,
		Shoot:             true,
	}

	tests := []struct {
		name   string
		source netip.AddrPort
		mutate func(*protocol.Control)
		accept bool
	}{
		{"wrong secret", addr(5000), func(c *protocol.Control) { c.Secret[0] ^= 0xff }, false},
		{"spoofed port", addr(5001), func(c *protocol.Control) {}, false},
		{"unknown port", addr(6000), func(c *protocol.Control) { c.SelfPort = 6000 }, false},
		{"other address", netip.MustParseAddrPort("127.0.0.2:5000"), func(c *protocol.Control) {}, false},
		{"valid", addr(5000), func(c *protocol.Control) {}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)
			before := p.Controls
			if got := m.HandleControl(tt.source, msg); got != tt.accept {
				t.Fatalf("HandleControl() = %v, expected %v", got, tt.accept)
			}
			if !tt.accept && p.Controls != before {
				t.Errorf("rejected control changed inputs to %+v", p.Controls)
			}
		})
	}

	want := entity.Controls{TrackAccelTarget: physics.Vector2D{X: 1, Y: -2}, TurretAccelTarget: 0.25, Shoot: true}
	if p.Controls != want {
		t.Errorf("Controls = %+v, expected %+v", p.Controls, want)
	}
	if p.Inactivity != 0 {
		t.Errorf("Inactivity = %v, expected reset to 0", p.Inactivity)
	}
}

func TestTickInactivity(t *testing.T) {
	m, store, bus := newTestManager(t, sequentialSecrets())
	left := 0
	bus.Subscribe(event.PlayerLeft, func(e event.Event) { left++ })

	idle, _, _ := m.HandleConnect(addr(5000), 5000)
	active, _, _ := m.HandleConnect(addr(5001), 5001)

	// exactly at the timeout the session survives
	if evicted := m.TickInactivity(5 * time.Second); len(evicted) != 0 {
		t.Fatalf("evicted %d players at the timeout, expected 0", len(evicted))
	}

	m.HandleControl(addr(5001), protocol.Control{SelfPort: 5001, Secret: active.Secret})

	evicted := m.TickInactivity(100 * time.Millisecond)
	if len(evicted) != 1 || evicted[0] != idle {
		t.Fatalf("TickInactivity() = %v, expected [idle]", evicted)
	}
	if _, ok := store.PlayerByPort(5000); ok {
		t.Error("evicted player still registered")
	}
	if store.Tanks.Len() != 1 || store.Turrets.Len() != 1 {
		t.Errorf("tanks=%d turrets=%d, expected the evicted tank removed", store.Tanks.Len(), store.Turrets.Len())
	}

	if again := m.TickInactivity(100 * time.Millisecond); len(again) != 0 {
		t.Errorf("second TickInactivity() evicted %d, expected 0", len(again))
	}
	if left != 1 {
		t.Errorf("PlayerLeft events = %d, expected 1", left)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{Rejected: "rejected", Joined: "joined", Reconnected: "reconnected"}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("%d.String() = %q, expected %q", o, o.String(), want)
		}
	}
}
