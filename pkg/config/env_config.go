// pkg/config/env_config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfigFromEnv
const (
	EnvBindAddr     = "TANKS_BIND_ADDR"
	EnvSelfPort     = "TANKS_SELF_PORT"
	EnvServerPort   = "TANKS_SERVER_PORT"
	EnvHealthPort   = "TANKS_HEALTH_PORT"
	EnvTickInterval = "TANKS_TICK_INTERVAL"
	EnvReadTimeout  = "TANKS_READ_TIMEOUT"
	EnvAllowRemote  = "TANKS_ALLOW_REMOTE"
	EnvConfigPath   = "TANKS_CONFIG"
	EnvMaxMemoryMB  = "TANKS_MAX_MEMORY_MB"

	EnvCircuitBreakerMaxRequests         = "TANKS_CB_MAX_REQUESTS"
	EnvCircuitBreakerInterval            = "TANKS_CB_INTERVAL"
	EnvCircuitBreakerTimeout             = "TANKS_CB_TIMEOUT"
	EnvCircuitBreakerMaxConsecutiveFails = "TANKS_CB_MAX_CONSECUTIVE_FAILS"
)

// EnvironmentConfig holds the process settings taken from the environment.
type EnvironmentConfig struct {
	BindAddr string
	// SelfPort is the local UDP port. Zero means the tuning file's port for
	// the server and an ephemeral port for the client.
	SelfPort     int
	ServerPort   int
	HealthPort   int
	TickInterval time.Duration
	ReadTimeout  time.Duration
	AllowRemote  bool
	ConfigPath   string
	MaxMemoryMB  int

	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s (%v): %s", e.Field, e.Value, e.Message)
}

// LoadConfigFromEnv reads TANKS_* variables. Unparseable values fall back to
// their defaults; out-of-range values are rejected with a ValidationError.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		BindAddr:     getEnvOrDefault(EnvBindAddr, "127.0.0.1"),
		SelfPort:     getEnvAsIntOrDefault(EnvSelfPort, 0),
		ServerPort:   getEnvAsIntOrDefault(EnvServerPort, 4000),
		HealthPort:   getEnvAsIntOrDefault(EnvHealthPort, 8080),
		TickInterval: getEnvAsDurationOrDefault(EnvTickInterval, 100*time.Millisecond),
		ReadTimeout:  getEnvAsDurationOrDefault(EnvReadTimeout, 5*time.Second),
		AllowRemote:  getEnvAsBoolOrDefault(EnvAllowRemote, false),
		ConfigPath:   getEnvOrDefault(EnvConfigPath, ""),
		MaxMemoryMB:  getEnvAsIntOrDefault(EnvMaxMemoryMB, 256),

		CircuitBreakerMaxRequests:         getEnvAsIntOrDefault(EnvCircuitBreakerMaxRequests, 3),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault(EnvCircuitBreakerInterval, 60*time.Second),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault(EnvCircuitBreakerTimeout, 10*time.Second),
		CircuitBreakerMaxConsecutiveFails: getEnvAsIntOrDefault(EnvCircuitBreakerMaxConsecutiveFails, 5),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	if config.BindAddr == "" {
		return &ValidationError{Field: "BindAddr", Value: config.BindAddr, Message: "must not be empty"}
	}
	if config.SelfPort < 0 || config.SelfPort > 65535 {
		return &ValidationError{Field: "SelfPort", Value: config.SelfPort, Message: "must be between 0 and 65535"}
	}
	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return &ValidationError{Field: "ServerPort", Value: config.ServerPort, Message: "must be between 1 and 65535"}
	}
	if config.HealthPort < 0 || config.HealthPort > 65535 {
		return &ValidationError{Field: "HealthPort", Value: config.HealthPort, Message: "must be between 0 and 65535"}
	}
	if config.TickInterval <= 0 {
		return &ValidationError{Field: "TickInterval", Value: config.TickInterval, Message: "must be positive"}
	}
	if config.ReadTimeout <= 0 {
		return &ValidationError{Field: "ReadTimeout", Value: config.ReadTimeout, Message: "must be positive"}
	}
	if config.MaxMemoryMB < 0 {
		return &ValidationError{Field: "MaxMemoryMB", Value: config.MaxMemoryMB, Message: "must not be negative"}
	}
	if config.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: config.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	}
	if config.CircuitBreakerInterval < 0 {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: config.CircuitBreakerInterval, Message: "must not be negative"}
	}
	if config.CircuitBreakerTimeout <= 0 {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: config.CircuitBreakerTimeout, Message: "must be positive"}
	}
	if config.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: config.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	return nil
}

// ApplyEnvironmentOverrides folds explicitly set TANKS_* variables into a
// game configuration and validates the result.
func ApplyEnvironmentOverrides(gameConfig *GameConfig) error {
	env, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}

	if isSet(EnvBindAddr) {
		gameConfig.NetworkConfig.BindAddress = env.BindAddr
	}
	if isSet(EnvSelfPort) && env.SelfPort != 0 {
		gameConfig.NetworkConfig.ServerPort = env.SelfPort
	}
	if isSet(EnvHealthPort) {
		gameConfig.NetworkConfig.HealthPort = env.HealthPort
	}
	if isSet(EnvTickInterval) {
		gameConfig.Simulation.TickInterval = Duration{env.TickInterval}
	}
	if isSet(EnvAllowRemote) {
		gameConfig.NetworkConfig.AllowRemote = env.AllowRemote
	}

	return gameConfig.Validate()
}

// LoadDotEnv loads variables from .env files without overriding variables
// already present in the environment. Missing files are skipped. With no
// arguments it reads ./.env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func isSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
