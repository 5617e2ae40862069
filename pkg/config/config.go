// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/physics"
)

// Duration is a time.Duration written as a Go duration string ("5s") in
// JSON and TOML files.
type Duration struct {
	time.Duration
}

// Seconds constructs a Duration from a number of seconds.
func Seconds(s float64) Duration {
	return Duration{time.Duration(s * float64(time.Second))}
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// GameConfig contains the tuning parameters of a tank server
type GameConfig struct {
	InactivityTimeout Duration         `json:"inactivityTimeout" toml:"inactivityTimeout"`
	RespawnDelay      Duration         `json:"respawnDelay" toml:"respawnDelay"`
	Maps              MapConfig        `json:"maps" toml:"maps"`
	Tank              TankConfig       `json:"tank" toml:"tank"`
	Bullet            BulletConfig     `json:"bullet" toml:"bullet"`
	Simulation        SimulationConfig `json:"simulation" toml:"simulation"`
	NetworkConfig     NetworkConfig    `json:"network" toml:"network"`
}

// MapConfig lists the map documents to choose from
type MapConfig struct {
	Dir   string   `json:"dir" toml:"dir"`
	Files []string `json:"files" toml:"files"`
}

// TankConfig contains tank and turret limits
type TankConfig struct {
	Radius                float64    `json:"radius" toml:"radius"`
	TrackMaxVelocity      [2]float64 `json:"trackMaxVelocity" toml:"trackMaxVelocity"`
	TrackMaxAcceleration  [2]float64 `json:"trackMaxAcceleration" toml:"trackMaxAcceleration"`
	TurretMaxVelocity     float64    `json:"turretMaxVelocity" toml:"turretMaxVelocity"`
	TurretMaxAcceleration float64    `json:"turretMaxAcceleration" toml:"turretMaxAcceleration"`
}

// BulletConfig contains weapon parameters
type BulletConfig struct {
	ShootDelay Duration `json:"shootDelay" toml:"shootDelay"`
	Radius     float64  `json:"radius" toml:"radius"`
	Speed      float64  `json:"speed" toml:"speed"`
	MaxBounces int      `json:"maxBounces" toml:"maxBounces"`
}

// SimulationConfig controls the fixed-tick loop
type SimulationConfig struct {
	TickInterval Duration `json:"tickInterval" toml:"tickInterval"`
	SubSteps     int      `json:"subSteps" toml:"subSteps"`
	// Seed initializes the spawn RNG; zero picks a random seed at startup.
	Seed uint64 `json:"seed" toml:"seed"`
}

// NetworkConfig contains socket and admission settings
type NetworkConfig struct {
	BindAddress         string `json:"bindAddress" toml:"bindAddress"`
	ServerPort          int    `json:"serverPort" toml:"serverPort"`
	HealthPort          int    `json:"healthPort" toml:"healthPort"`
	QueueSize           int    `json:"queueSize" toml:"queueSize"`
	MaxDatagramsPerTick int    `json:"maxDatagramsPerTick" toml:"maxDatagramsPerTick"`
	AllowRemote         bool   `json:"allowRemote" toml:"allowRemote"`
}

// LoadConfig loads a configuration file. Files ending in .toml are parsed as
// TOML, everything else as JSON. Missing fields keep their default values.
func LoadConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file in the format implied by its extension
func SaveConfig(config *GameConfig, path string) error {
	var data []byte
	if isTOML(path) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// DefaultConfig returns a default game configuration
func DefaultConfig() *GameConfig {
	return &GameConfig{
		InactivityTimeout: Seconds(5),
		RespawnDelay:      Seconds(5),
		Maps: MapConfig{
			Dir:   "./assets/maps",
			Files: []string{"map.yaml"},
		},
		Tank: TankConfig{
			Radius:                12,
			TrackMaxVelocity:      [2]float64{500, 500},
			TrackMaxAcceleration:  [2]float64{100, 100},
			TurretMaxVelocity:     2,
			TurretMaxAcceleration: 0.5,
		},
		Bullet: BulletConfig{
			ShootDelay: Seconds(1),
			Radius:     5,
			Speed:      100,
			MaxBounces: 1,
		},
		Simulation: SimulationConfig{
			TickInterval: Duration{100 * time.Millisecond},
			SubSteps:     1,
		},
		NetworkConfig: NetworkConfig{
			BindAddress:         "127.0.0.1",
			ServerPort:          4000,
			HealthPort:          8080,
			QueueSize:           1024,
			MaxDatagramsPerTick: 8,
		},
	}
}

// Validate checks every tuning value and reports the first invalid field.
func (c *GameConfig) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"InactivityTimeout", c.InactivityTimeout.Seconds()},
		{"Simulation.TickInterval", c.Simulation.TickInterval.Seconds()},
		{"Tank.Radius", c.Tank.Radius},
		{"Bullet.Radius", c.Bullet.Radius},
		{"Bullet.Speed", c.Bullet.Speed},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return &ValidationError{Field: p.field, Value: p.value, Message: "must be a positive finite number"}
		}
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"RespawnDelay", c.RespawnDelay.Seconds()},
		{"Bullet.ShootDelay", c.Bullet.ShootDelay.Seconds()},
		{"Tank.TrackMaxVelocity[0]", c.Tank.TrackMaxVelocity[0]},
		{"Tank.TrackMaxVelocity[1]", c.Tank.TrackMaxVelocity[1]},
		{"Tank.TrackMaxAcceleration[0]", c.Tank.TrackMaxAcceleration[0]},
		{"Tank.TrackMaxAcceleration[1]", c.Tank.TrackMaxAcceleration[1]},
		{"Tank.TurretMaxVelocity", c.Tank.TurretMaxVelocity},
		{"Tank.TurretMaxAcceleration", c.Tank.TurretMaxAcceleration},
	}
	for _, p := range nonNegative {
		if !(p.value >= 0) || math.IsInf(p.value, 0) {
			return &ValidationError{Field: p.field, Value: p.value, Message: "must be a non-negative finite number"}
		}
	}

	if c.Bullet.MaxBounces < 0 {
		return &ValidationError{Field: "Bullet.MaxBounces", Value: c.Bullet.MaxBounces, Message: "must not be negative"}
	}
	if c.Simulation.SubSteps < 1 {
		return &ValidationError{Field: "Simulation.SubSteps", Value: c.Simulation.SubSteps, Message: "must be at least 1"}
	}
	if len(c.Maps.Files) == 0 {
		return &ValidationError{Field: "Maps.Files", Value: c.Maps.Files, Message: "at least one map is required"}
	}
	if c.NetworkConfig.ServerPort < 1 || c.NetworkConfig.ServerPort > 65535 {
		return &ValidationError{Field: "Network.ServerPort", Value: c.NetworkConfig.ServerPort, Message: "must be between 1 and 65535"}
	}
	if c.NetworkConfig.HealthPort < 0 || c.NetworkConfig.HealthPort > 65535 {
		return &ValidationError{Field: "Network.HealthPort", Value: c.NetworkConfig.HealthPort, Message: "must be between 0 and 65535"}
	}
	if c.NetworkConfig.QueueSize < 1 {
		return &ValidationError{Field: "Network.QueueSize", Value: c.NetworkConfig.QueueSize, Message: "must be at least 1"}
	}
	if c.NetworkConfig.MaxDatagramsPerTick < 0 {
		return &ValidationError{Field: "Network.MaxDatagramsPerTick", Value: c.NetworkConfig.MaxDatagramsPerTick, Message: "must not be negative"}
	}
	return nil
}

// MapPaths returns the configured map files joined with the map directory.
func (c *GameConfig) MapPaths() []string {
	paths := make([]string, 0, len(c.Maps.Files))
	for _, f := range c.Maps.Files {
		if filepath.IsAbs(f) || c.Maps.Dir == "" {
			paths = append(paths, f)
			continue
		}
		paths = append(paths, filepath.Join(c.Maps.Dir, f))
	}
	return paths
}

// PlayerLimits snapshots the limits a newly connected player is held to.
func (c *GameConfig) PlayerLimits() entity.Limits {
	return entity.Limits{
		TankRadius:            c.Tank.Radius,
		TrackMaxVelocity:      physics.Vector2D{X: c.Tank.TrackMaxVelocity[0], Y: c.Tank.TrackMaxVelocity[1]},
		TrackMaxAcceleration:  physics.Vector2D{X: c.Tank.TrackMaxAcceleration[0], Y: c.Tank.TrackMaxAcceleration[1]},
		TurretMaxVelocity:     c.Tank.TurretMaxVelocity,
		TurretMaxAcceleration: c.Tank.TurretMaxAcceleration,
		ShootDelay:            c.Bullet.ShootDelay.Duration,
		BulletRadius:          c.Bullet.Radius,
		BulletSpeed:           c.Bullet.Speed,
		BulletMaxBounces:      c.Bullet.MaxBounces,
	}
}
