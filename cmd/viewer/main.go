package main

import (
	"allchat/infrastructure/storage"
	"allchat/internal"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	PageSize       int    `env:"VIEWER_PAGE_SIZE,default=50"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Start Debug Server Only
	// No engine runs here, stats only describe the viewer
	viewerStats := func() map[string]any {
		return map[string]any{
			"status": "viewer mode (read-only)",
			"time":   time.Now().Format(time.RFC822),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal := storage.NewJournalRepository(db, logger, config.PageSize)
	fmt.Printf("Viewer started at http://localhost:%d/matches\n", config.DebugPort)
	internal.StartDebugServer(ctx, logger, config.DebugPort,
		internal.NewDebugMux(logger, viewerStats, internal.JournalRows(journal)))
	<-ctx.Done()
}
