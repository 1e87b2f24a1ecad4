package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"whereabouts/backend/internal/api/handler"
	"whereabouts/backend/internal/config"
	"whereabouts/backend/internal/help"
	"whereabouts/backend/internal/hub"
	"whereabouts/backend/internal/logging"
	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/presence"
	"whereabouts/backend/internal/storage"
	"whereabouts/backend/internal/telegram"
)

func setupDependencies(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		// Surfaces unique violations as gorm.ErrDuplicatedKey so the
		// storage layer can map them onto the conflict taxonomy.
		TranslateError: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if err := storage.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database and redis connections established, migrations complete")
	return db, rdb, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: no .env file loaded")
	}

	cfg, err := config.Load(os.Getenv("WB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting whereabouts backend", zap.Int("port", cfg.Server.Port))

	db, rdb, err := setupDependencies(cfg, logger)
	if err != nil {
		logger.Fatal("dependency setup failed", zap.Error(err))
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.SeedLocations(context.Background()); err != nil {
		logger.Fatal("seeding default locations failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Services. The hub's snapshot callback closes over the presence
	// engine, so every new subscriber gets the reaped, current
	// projection.
	var presenceSvc *presence.Service
	broadcastHub := hub.NewHub(s, func(ctx context.Context) (*models.InitialState, error) {
		return presenceSvc.Snapshot(ctx)
	}, logger)
	presenceSvc = presence.NewService(s, broadcastHub, logger, cfg.Presence.TempLocationTTL)
	helpSvc := help.NewService(s, broadcastHub, logger)

	go broadcastHub.Run(ctx)
	broadcastHub.StartRelay(ctx)

	if cfg.Telegram.BotToken != "" {
		notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal("telegram notifier setup failed", zap.Error(err))
		}
		broadcastHub.RegisterCh <- notifier
	}

	r := gin.Default()
	h := handler.NewHandler(
		presenceSvc, helpSvc, broadcastHub, s, logger,
		cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Hub.KeepAlive,
	)
	h.Register(r)

	// No WriteTimeout: the event stream responses are long-lived.
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	// Block until a termination signal, then drain in-flight requests.
	// Cancelling ctx also stops the hub, closing every live stream.
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
