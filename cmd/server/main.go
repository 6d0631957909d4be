package main

import (
	"context"
	"errors"
	"fmt"
	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain/event"
	"group-chat/infrastructure/api"
	"group-chat/infrastructure/grpc/server"
	"group-chat/infrastructure/storage"
	"group-chat/internal"
	"group-chat/observability"
	"group-chat/runtime"
	"group-chat/runtime/workers"
	"group-chat/services"
	"group-chat/session"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes for the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const feedReadyTimeout = 30 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal error.
// Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return exitConfig, fmt.Errorf("loading .env: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := storage.Open(config.BadgerFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, RecordMapper)
	}

	// 3. Services
	clock := contract.SystemClock{}
	groupRepository := storage.NewGroupRepository(db, logger)
	messageRepository := storage.NewMessageRepository(db, logger)
	profileRepository := storage.NewProfileRepository(db, logger)

	authority, err := services.NewMembershipAuthority(logger, groupRepository, config.MembershipCacheTTL)
	if err != nil {
		return exitRuntime, fmt.Errorf("membership cache: %w", err)
	}
	defer authority.Close()
	store := services.NewMessageStore(logger, authority, messageRepository, clock,
		config.MaxContentLength, config.HistoryLimit, config.MaxHistoryLimit)
	groups := services.NewGroupService(logger, storage.NewUnitOfWork(db), groupRepository, authority, clock)
	profiles := services.NewProfileService(logger, profileRepository, groupRepository, messageRepository, clock)

	// 4. Supervision & change feed
	telemetryChan := make(chan event.Event, config.BufferSize)
	sup := workers.NewSupervisor(logger, telemetryChan, config.RestartInterval)
	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor()
	orchestrator := runtime.NewOrchestrator(logger, db, sup, registry, monitor, telemetryChan,
		config.BufferSize, config.MetricInterval, config.LowCapacityThreshold)
	manager := session.NewManager(logger, authority, store, registry, monitor, clock, session.Options{
		BufferSize:        config.ConnectionBufferSize,
		HistoryLimit:      config.HistoryLimit,
		HeartbeatTimeout:  config.HeartbeatTimeout,
		ReconnectAttempts: uint64(config.ReconnectAttempts),
		ReconnectBackoff:  config.ReconnectBackoff,
		CloseTimeout:      config.CloseTimeout,
	})
	orchestrator.WithDynamicChannels(manager.Channels)
	orchestrator.Add(
		workers.NewLivenessReaper(logger, manager, config.ReapInterval),
		workers.NewLivenessReaper(logger, store, config.ReapInterval),
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errChan := make(chan error, 2)

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Start(ctx)
	}()
	defer func() {
		orchestrator.Stop()
		<-orchestratorDone
	}()

	select {
	case <-orchestrator.Ready():
		logger.Info("Change feed is live")
	case <-ctx.Done():
		return exitOK, nil
	case <-time.After(feedReadyTimeout):
		return exitRuntime, fmt.Errorf("change feed not ready after %s", feedReadyTimeout)
	}

	// 6. Admin gRPC (health)
	adminAddress := fmt.Sprintf("%s:%d", config.Host, config.AdminPort)
	adminListener, err := net.Listen("tcp", adminAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", adminAddress, err)
	}
	admin := server.NewAdminServer(logger)
	admin.SetServing(true)
	go func() {
		logger.Info("Starting admin gRPC server", "address", adminAddress)
		if err := admin.Serve(adminListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. HTTP & websocket edge
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	edge := api.NewServer(logger, issuer, auth.ContextProvider{}, services.NewChatService(authority, store, groups), profiles, manager, api.Options{
		WriteTimeout:   config.SinkTimeout,
		ReadTimeout:    config.HeartbeatTimeout,
		OutboundBuffer: config.ConnectionBufferSize,
		DefaultLimit:   config.HistoryLimit,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           edge.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Graceful shutdown: refuse new work, close live sessions, then stop the workers.
	logger.Info("Shutting down gracefully...")
	admin.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.CloseTimeout*2)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	manager.Shutdown()
	admin.GracefulStop()
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
