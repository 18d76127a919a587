package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/warpfront/warpfront-server-go/internal/config"
	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/logging"
	"github.com/warpfront/warpfront-server-go/internal/repository"
	"github.com/warpfront/warpfront-server-go/internal/server"
	"github.com/warpfront/warpfront-server-go/internal/session"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	loader, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting warpfront server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	loader.Watch(func(next *config.Config) {
		level.SetLevel(logging.ParseLevel(next.Logging.Level))
		logger.Info("configuration reloaded", zap.String("log_level", next.Logging.Level))
	}, func(err error) {
		logger.Warn("ignoring invalid configuration", zap.Error(err))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	repo, err := repository.New(ctx, repository.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	logger.Info("storage initialized", zap.String("driver", cfg.Storage.Driver))

	replays := game.NewReplayArchiver(logger, cfg.Storage.ReplayDir)
	if replays.Enabled() {
		logger.Info("replay archiving enabled", zap.String("dir", cfg.Storage.ReplayDir))
	}

	registry := session.NewRegistry(session.Options{
		Game: game.Options{
			Players:  cfg.Game.Players,
			GridSize: cfg.Game.GridSize,
			Seed:     cfg.Game.Seed,
		},
		ArchiveTimeout: cfg.Storage.ArchiveTimeout,
	}, repo, replays, logger)
	svc := server.NewService(registry, logger)

	feed := server.NewFeed(registry, logger)
	go feed.Run(ctx)

	httpServer := server.NewHTTPServer(
		cfg.Server.HTTP.Address,
		server.NewRouter(svc, feed, logger),
		cfg.Server.HTTP.ReadTimeout,
		cfg.Server.HTTP.WriteTimeout,
	)
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
			sigChan <- syscall.SIGTERM
		}
	}()

	var grpcServer *grpc.Server
	if cfg.Server.GRPC.Address != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
		if err != nil {
			logger.Fatal("failed to listen", zap.Error(err))
		}
		grpcServer = server.NewGRPCServer(svc, logger, cfg.Server.GRPC.MaxConcurrentStreams)
		go func() {
			logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
			if serveErr := grpcServer.Serve(lis); serveErr != nil {
				logger.Error("gRPC server error", zap.Error(serveErr))
			}
		}()
	}

	logger.Info("warpfront server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.Int("players_per_game", cfg.Game.Players),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	cancel()

	if err := repo.Close(shutdownCtx); err != nil {
		logger.Warn("failed to close storage", zap.Error(err))
	}

	logger.Info("warpfront server stopped")
}
