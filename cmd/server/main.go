package main

import (
	"allchat/domain/event"
	"allchat/infrastructure/storage"
	"allchat/infrastructure/websocket"
	"allchat/internal"
	"allchat/observability"
	"allchat/runtime"
	"allchat/runtime/workers"
	"allchat/services"
	"allchat/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const journalPageSize = 50

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a fatal error, then shuts down.
// Returning instead of exiting lets the deferred cleanups run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Optional match journal (BadgerDB)
	var journal storage.IJournalRepository
	if config.BadgerFilepath != "" {
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		journal = storage.NewJournalRepository(db, logger, journalPageSize)
	}

	// 4. Supervision & Orchestration
	telemetryChan := make(chan event.Event, config.TelemetryBufferSize)
	sup := workers.NewSupervisor(logger, telemetryChan, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, sup, telemetryChan, runtime.Settings{
		ShardCount:      config.ShardCount,
		MetricInterval:  config.MetricInterval,
		MatchTimeout:    config.MatchTimeout,
		JanitorInterval: config.JanitorInterval,
		RequeuePolicy:   config.Requeue(),
		ReconnectPolicy: config.Reconnect(),
	})

	// The counter handler goes first, the restart handler reads its totals.
	counter := event.NewCounter()
	processStats := event.NewProcessStatsHandler(logger)
	orchestrator.RegisterHandlers(
		event.NewCounterHandler(counter),
		event.NewWorkerRestartedAfterPanicHandler(logger, counter),
		event.NewChannelCapacityHandler(logger, config.LowCapacityThreshold),
		processStats,
	)
	if journal != nil {
		orchestrator.RegisterHandlers(sink.NewJournalSink(journal, logger))
	}
	var matchService services.IMatchService = services.NewMatchService(orchestrator)
	monitor := observability.NewMonitor(matchService, counter, processStats)

	errChan := make(chan error, 2)

	// 5. Start the engine
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 6. Debug server
	if config.DebugPort > 0 {
		var rows internal.RowSource
		if journal != nil {
			rows = internal.JournalRows(journal)
		}
		internal.StartDebugServer(ctx, logger, config.DebugPort, internal.NewDebugMux(logger, monitor.Snapshot, rows))
	}

	// 7. WebSocket server
	wsServer := websocket.NewServer(ctx, logger, matchService, websocket.QueryIdentity, websocket.Settings{
		ConnectionBufferSize: config.ConnectionBufferSize,
		DeliveryTimeout:      config.DeliveryTimeout,
		WriteTimeout:         config.WriteTimeout,
		PongWait:             config.PongWait,
		PingInterval:         config.PingInterval,
		MaxMessageSize:       config.MaxMessageSize,
		AllowedOrigins:       config.Origins(),
	})
	mux := http.NewServeMux()
	mux.Handle(config.WebSocketPath, wsServer)
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting websocket server", "address", config.Address(), "path", config.WebSocketPath,
			"requeue_policy", config.Requeue(), "reconnect_policy", config.Reconnect())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
		stop()
	}

	// 9. Graceful shutdown: hijacked websocket connections are closed through ctx.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	wsServer.Wait()
	orchestrator.Stop()
	// Telemetry is drained before the journal closes.
	<-engineDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
