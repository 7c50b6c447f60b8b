package main

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/infrastructure/server"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// run wires every component and blocks until a termination signal arrives.
// Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 1, fmt.Errorf("loading .env: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return 1, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return 1, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return 1, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users, err := repositories.NewUserRepository(db)
	if err != nil {
		return 1, err
	}
	defer func() { _ = users.Close() }()
	chats, err := repositories.NewChatRepository(db)
	if err != nil {
		return 1, err
	}
	defer func() { _ = chats.Close() }()
	messages, err := repositories.NewMessageRepository(db, log, config.LimitMessages)
	if err != nil {
		return 1, err
	}
	defer func() { _ = messages.Close() }()

	// 3. Supervision & fan-out
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(log, registry, chats, config.SinkTimeout)
	orchestrator := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, config.RestartInterval), dispatcher,
		config.NumberOfWorkers, config.BufferSize)
	orchestrator.Add(workers.NewStatsWorker(log, registry, config.MetricInterval))

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		_ = orchestrator.Start(ctx)
	}()

	// 4. Sessions & HTTP surface
	ingestor := runtime.NewIngestor(log, messages)
	filter, err := moderation.NewFilter(config.CensoredWords, config.MaskRune())
	if err != nil {
		return 1, fmt.Errorf("building the word filter: %w", err)
	}
	if filter != nil {
		ingestor.WithFilter(filter)
	}

	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	router := runtime.NewCommandRouter(log, runtime.RouterConfig{
		ConnectionBufferSize: config.ConnectionBufferSize,
		FramesPerSecond:      config.MaxFramesPerSecond,
		FrameBurst:           config.FrameBurst,
		ProcessingTimeout:    config.ProcessingTimeout,
	}, registry, auth.NewJWTVerifier(issuer, users), ingestor,
		orchestrator, messages, chats)

	srv := server.NewServer(ctx, log, router,
		services.NewAuthService(log, users, issuer),
		services.NewChatService(log, chats, messages, users),
		issuer, config.SinkTimeout)

	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return 1, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}
	go func() {
		if err := srv.Serve(listener); err != nil {
			log.Error("HTTP server stopped", "error", err)
		}
	}()

	// 5. Wait for a signal, then stop in order: sessions, listener, workers
	wait := gfshutdown.GracefulShutdown(context.Background(), config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-relay": func(shutdownCtx context.Context) error {
				log.Info("Shutting down gracefully...")
				cancel()
				err := srv.Shutdown(shutdownCtx)
				orchestrator.Stop()
				registry.CloseAll(contract.CloseGoingAway, "server shutting down")
				select {
				case <-orchestratorDone:
				case <-shutdownCtx.Done():
					return shutdownCtx.Err()
				}
				return err
			},
		})

	code := <-wait
	log.Info("Program stopped", "exit_code", code)
	return code, nil
}
