/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, the background sync loop and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and environment configuration
  2. Open the local state file and the SQLite store
  3. Build the desk and the sync loop
  4. Emit the startup sync trigger
  5. Start the HTTP server with graceful shutdown

CONFIGURATION (environment, BOOKING_ prefix):
  BOOKING_PORT           HTTP port (default 8080)
  BOOKING_DB_PATH        SQLite path, ":memory:" for in-memory (default booking.db)
  BOOKING_STATE_PATH     Local state file (default ./data/state.json)
  BOOKING_SYNC_INTERVAL  Periodic sync interval (default 1m)
  BOOKING_REDIS_ADDR     Redis address for change notifications, empty disables
  BOOKING_REDIS_CHANNEL  Pub/sub channel (default booking:changes)
  BOOKING_LOG_LEVEL      zerolog level (default info)
  BOOKING_LOG_PRETTY     Console-format logs (default false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait for active
  requests (30s timeout), stop the sync loop, close the database.

SEE ALSO:
  - api/server.go: Router configuration
  - reconcile/sync.go: The background rebuild loop
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glaciarsur/booking-engine/api"
	"github.com/glaciarsur/booking-engine/desk"
	"github.com/glaciarsur/booking-engine/localstate"
	"github.com/glaciarsur/booking-engine/reconcile"
	"github.com/glaciarsur/booking-engine/store/sqlite"
)

type serverConfig struct {
	Port         int           `default:"8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"booking.db"`
	StatePath    string        `envconfig:"STATE_PATH" default:"./data/state.json"`
	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"1m"`
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	RedisChannel string        `envconfig:"REDIS_CHANNEL" default:"booking:changes"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty    bool          `envconfig:"LOG_PRETTY" default:"false"`
}

func main() {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg serverConfig
	if err := envconfig.Process("booking", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	remote, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer remote.Close()

	local := localstate.Open(cfg.StatePath, log)
	d := desk.New(remote, local, log)

	signalStream := reconcile.NewRefreshSignal()
	syncer := &reconcile.Syncer{
		Remote:   remote,
		Registry: d.Registry(),
		Log:      log,
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info().Str("addr", cfg.RedisAddr).Msg("change notifications enabled")
	}
	refresher := &api.Refresher{
		Signal:   signalStream,
		Interval: cfg.SyncInterval,
		Redis:    rdb,
		Channel:  cfg.RedisChannel,
		Log:      log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go syncer.Run(ctx, signalStream, d.ApplySync)
	go refresher.Run(ctx)
	signalStream.Emit(reconcile.ReasonStartup)

	handler := api.NewHandler(d, signalStream, refresher, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	cancel()
	if rdb != nil {
		rdb.Close()
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg serverConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr)
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
