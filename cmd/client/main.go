// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/opd-ai/go-tanks/pkg/config"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/network"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(ctx, "Failed to load .env file", err)
		os.Exit(1)
	}
	env, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}

	serverHost := flag.String("server", env.BindAddr, "Server IP address")
	serverPort := flag.Int("port", env.ServerPort, "Server port")
	flag.Parse()

	serverAddr, err := netip.ParseAddrPort(net.JoinHostPort(*serverHost, strconv.Itoa(*serverPort)))
	if err != nil {
		logger.Error(ctx, "Invalid server address", err, "host", *serverHost, "port", *serverPort)
		os.Exit(1)
	}

	service := network.NewNetworkService(env, logger)
	client := network.NewGameClient(serverAddr, &wanderer{}, service, env.ReadTimeout, logger)

	local := net.JoinHostPort(env.BindAddr, strconv.Itoa(env.SelfPort))
	if err := client.Bind(local); err != nil {
		logger.Error(ctx, "Failed to bind client socket", err, "address", local)
		os.Exit(1)
	}
	defer client.Close()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting bot", "server", serverAddr.String(), "local_port", client.LocalPort())
	client.Run(runCtx)
	logger.Info(ctx, "Bot stopped", "states", client.StatesReceived())
}

// wanderer drives in long arcs, alternating direction, while sweeping the
// turret and firing whenever the gun is ready.
type wanderer struct {
	ticks int
}

func (w *wanderer) Control(state protocol.State) network.Input {
	w.ticks++
	in := network.Input{
		TrackAccelTarget:  [2]float32{60, 40},
		TurretAccelTarget: 0.5,
		Shoot:             len(state.Tanks) > 1,
	}
	if (w.ticks/50)%2 == 1 {
		in.TrackAccelTarget = [2]float32{40, 60}
		in.TurretAccelTarget = -0.5
	}
	return in
}
