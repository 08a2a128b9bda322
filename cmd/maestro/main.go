// Package main is Maestro's single entry point: it wires every service
// described in spec.md §2 over the in-memory store and event bus, mounts the
// REST Surface and WebSocket Bridge on one gin engine, and runs until an
// interrupt triggers graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/api"
	"github.com/maestro-run/maestro/internal/digest"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/gateway/websocket"
	"github.com/maestro-run/maestro/internal/mail"
	"github.com/maestro-run/maestro/internal/ordering"
	"github.com/maestro-run/maestro/internal/platform/config"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/platform/tracing"
	"github.com/maestro-run/maestro/internal/project"
	"github.com/maestro-run/maestro/internal/queue"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/spawn"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
	"github.com/maestro-run/maestro/internal/tasklist"
	"github.com/maestro-run/maestro/internal/team"
	"github.com/maestro-run/maestro/internal/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting maestro")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracerProvider, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer tracerProvider.ShutdownWithDefaultTimeout()

	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(log)
	defer bus.Close()

	projectSvc := project.New(store, bus, log)
	taskSvc := task.New(store, bus, log)
	sessionSvc := session.New(store, bus, log)
	mailSvc := mail.New(store, bus, log)
	queueSvc := queue.New(store, taskSvc)
	digestSvc := digest.New(store)
	teamSvc := team.New(store)
	taskListSvc := tasklist.New(store)
	templateSvc := template.New(store)
	orderingSvc := ordering.New(store)
	spawnSvc := spawn.New(store, sessionSvc, templateSvc, bus, cfg.Spawn, log)

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	bridge := websocket.NewBridge(hub, bus, log)
	if err := bridge.Start(ctx); err != nil {
		log.Fatal("failed to start websocket bridge", zap.Error(err))
	}

	wsHandler := websocket.NewHandler(hub, log)

	router := api.NewRouter(api.Services{
		Project:  projectSvc,
		Task:     taskSvc,
		Session:  sessionSvc,
		Mail:     mailSvc,
		Queue:    queueSvc,
		Digest:   digestSvc,
		Spawn:    spawnSvc,
		Team:     teamSvc,
		TaskList: taskListSvc,
		Template: templateSvc,
		Ordering: orderingSvc,
		Store:    store,
		Bus:      bus,
	}, wsHandler, log)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("http server listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down maestro")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	log.Info("maestro stopped")
}
