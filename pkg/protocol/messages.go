// Package protocol implements the binary wire format spoken between the tank
// server and its thin clients. Every datagram starts with a one-byte tag and
// all multi-byte fields are big-endian.
package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Client to server tags
const (
	TagConnect byte = 0x00
	TagControl byte = 0x01
)

// Server to client tags
const (
	TagMapChange    byte = 0x00
	TagState        byte = 0x01
	TagDisconnected byte = 0x02
)

// Fixed sizes of the wire layout, in bytes.
const (
	SecretSize     = 16
	ConnectSize    = 1 + 2
	ControlSize    = 1 + 2 + SecretSize + 4 + 4 + 4 + 1
	WallSize       = 16
	TankSize       = 24
	BulletSize     = 16
	MaxListEntries = 255

	// MaxClientMessageSize is the largest datagram a client may send.
	MaxClientMessageSize = ControlSize
	// MaxServerMessageSize bounds a State message carrying 255 tanks and 255 bullets.
	MaxServerMessageSize = 1 + SecretSize + 1 + MaxListEntries*TankSize + 1 + MaxListEntries*BulletSize
)

// Secret is the per-session 128-bit token, stored in big-endian order.
type Secret [SecretSize]byte

// NewSecret returns a uniformly random secret.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, fmt.Errorf("failed to generate secret: %w", err)
	}
	return s, nil
}

// IsZero reports whether the secret is all zero bytes.
func (s Secret) IsZero() bool {
	return s == Secret{}
}

// String returns the secret as hex.
func (s Secret) String() string {
	return hex.EncodeToString(s[:])
}

// ClientMessage is a decoded client to server datagram: Connect or Control.
type ClientMessage interface {
	clientTag() byte
}

// ServerMessage is a decoded server to client datagram: MapChange, State or Disconnected.
type ServerMessage interface {
	serverTag() byte
}

// Connect asks the server to create (or respawn) the player bound to SelfPort.
type Connect struct {
	SelfPort uint16
}

// Control carries the latest inputs of an authenticated player.
type Control struct {
	SelfPort          uint16
	Secret            Secret
	TrackAccelTarget  [2]float32
	TurretAccelTarget float32
	Shoot             bool
}

func (Connect) clientTag() byte { return TagConnect }
func (Control) clientTag() byte { return TagControl }

// Wall is a wall segment as sent to clients. DirectionLength is the unit
// direction of the wall scaled by its half-length.
type Wall struct {
	Origin          [2]float32
	DirectionLength [2]float32
}

// Tank is one tank entry of a State message, in world space.
type Tank struct {
	Position        [2]float32
	TankDirection   [2]float32
	TurretDirection [2]float32
}

// Bullet is one bullet entry of a State message.
type Bullet struct {
	Position  [2]float32
	Direction [2]float32
}

// MapChange tells a client which walls make up the current map.
type MapChange struct {
	Secret Secret
	Walls  []Wall
}

// State is the per-tick snapshot of every tank and bullet.
type State struct {
	Secret  Secret
	Tanks   []Tank
	Bullets []Bullet
}

// Disconnected notifies a client that its session is gone.
type Disconnected struct{}

func (MapChange) serverTag() byte    { return TagMapChange }
func (State) serverTag() byte        { return TagState }
func (Disconnected) serverTag() byte { return TagDisconnected }
