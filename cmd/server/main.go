// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opd-ai/go-tanks/pkg/config"
	"github.com/opd-ai/go-tanks/pkg/engine"
	"github.com/opd-ai/go-tanks/pkg/health"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/maps"
	"github.com/opd-ai/go-tanks/pkg/network"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(ctx, "Failed to load .env file", err)
		os.Exit(1)
	}

	defaultPath := os.Getenv(config.EnvConfigPath)
	if defaultPath == "" {
		defaultPath = "config.json"
	}
	configPath := flag.String("config", defaultPath, "Path to configuration file (.json or .toml)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	gameConfig := loadGameConfig(ctx, logger, *configPath)

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}
	if err := config.ApplyEnvironmentOverrides(gameConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	mapRand := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	arena, err := maps.LoadRandom(gameConfig.MapPaths(), mapRand, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load a map", err, "maps", gameConfig.MapPaths())
		os.Exit(1)
	}
	logger.Info(ctx, "Loaded map",
		"name", arena.Name,
		"walls", len(arena.Walls),
		"spawns", len(arena.Spawns),
	)

	game := engine.NewGame(gameConfig, arena, logger)
	server := network.NewGameServer(game, logger)

	nc := gameConfig.NetworkConfig
	address := net.JoinHostPort(nc.BindAddress, strconv.Itoa(nc.ServerPort))
	if err := server.Listen(address); err != nil {
		logger.Error(ctx, "Failed to start server", err, "address", address)
		os.Exit(1)
	}
	defer server.Close()

	healthServer := startHealthServer(ctx, logger, server, gameConfig, envConfig.MaxMemoryMB)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting game loop",
		"address", server.ListenAddr(),
		"tick_interval", gameConfig.Simulation.TickInterval.String(),
	)
	if err := server.Serve(runCtx); err != nil {
		logger.Error(ctx, "Game loop failed", err)
	}

	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Health check server shutdown failed", err)
	}
}

// loadGameConfig reads the tuning file, falling back to defaults when it
// does not exist.
func loadGameConfig(ctx context.Context, logger *logging.Logger, path string) *config.GameConfig {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		return config.DefaultConfig()
	}
	gameConfig, err := config.LoadConfig(path)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", path)
		os.Exit(1)
	}
	return gameConfig
}

func startHealthServer(ctx context.Context, logger *logging.Logger, server *network.GameServer, cfg *config.GameConfig, maxMemoryMB int) *http.Server {
	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewTickLoopHealthCheck(server.LastTick, 5*cfg.Simulation.TickInterval.Duration))
	checker.AddCheck(health.NewNetworkHealthCheck(server.ListenAddr))
	checker.AddCheck(health.NewMemoryHealthCheck(int64(maxMemoryMB), health.HeapUsageMB))

	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.NetworkConfig.BindAddress, strconv.Itoa(cfg.NetworkConfig.HealthPort)),
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting health check server", "address", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return healthServer
}
