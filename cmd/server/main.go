// Package main is the entry point for the booking assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/api"
	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/assistant"
	"github.com/booking-assistant/backend/internal/auth"
	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/calendar"
	"github.com/booking-assistant/backend/internal/config"
	"github.com/booking-assistant/backend/internal/datetime"
	"github.com/booking-assistant/backend/internal/dialogue"
	"github.com/booking-assistant/backend/internal/logging"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a config file (optional)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting booking assistant",
		zap.String("version", version),
		zap.String("env", cfg.Env),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hours, err := cfg.Hours()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := storage.NewDB(filepath.Join(cfg.DataDir, "booking-assistant.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dialogue sessions
	var (
		sessions  dialogue.SessionStore
		redisPing interface{ Ping(context.Context) error }
	)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		store := dialogue.NewRedisSessionStore(rdb, cfg.SessionTTL, logger.Named("sessions"))
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		sessions, redisPing = store, store
		logger.Info("dialogue sessions in redis", zap.String("addr", cfg.RedisAddr))
	default:
		sessions = dialogue.NewMemorySessionStore(cfg.SessionTTL)
		logger.Info("dialogue sessions in memory")
	}

	// Ledger and availability
	bookings := storage.NewBookingRepository(db)
	slots := availability.NewStore(bookings, availability.Template{
		Hours:           hours,
		DurationMinutes: cfg.SlotDurationMin,
	}, cfg.DefaultBookingTitle)

	engine := dialogue.NewEngine(
		sessions,
		slots,
		nil,
		datetime.NewExtractor(loc),
		response.NewComposer(nil),
		logger.Named("dialogue"),
	)

	// Calendar collaborator
	provider := auth.NewProvider(storage.NewCredentialRepository(db), logger.Named("auth"))
	calendarClient := calendar.NewClient(calendar.Config{
		BaseURL:    cfg.CalendarAPIURL,
		CalendarID: cfg.CalendarID,
		Timeout:    cfg.CalendarTimeout,
	})
	publisher := calendar.NewPublisher(bookings, provider, calendarClient, loc, logger.Named("calendar"))

	// Real-time delivery
	hub := websocket.NewHub(logger.Named("websocket"))
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub, logger.Named("websocket"))

	svc := assistant.NewService(engine, slots, publisher, events, logger.Named("assistant"))

	// Stale confirmation sweeper
	sweeper := dialogue.NewSweeper(engine, cfg.ExpirySweep, cfg.ConfirmTimeout, logger.Named("sweeper"))
	sweeper.OnExpire = svc.SessionExpired
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}
	defer sweeper.Stop()

	services := api.Services{
		DB:        db,
		Bookings:  bookings,
		Store:     slots,
		Engine:    engine,
		Assistant: svc,
		Auth:      provider,
		Busy:      calendar.NewBusyLookup(provider, calendarClient, loc),
		Hub:       hub,
		Sweeper:   sweeper,
		Location:  loc,
		StaticDir: cfg.StaticDir,
		Limiter:   middleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst, cfg.TrustProxy),
		Logger:    logger.Named("http"),
	}
	if redisPing != nil {
		services.Redis = redisPing
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(services),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
