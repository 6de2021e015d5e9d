package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/party-rsvp/internal/config"
	"github.com/kirinyoku/party-rsvp/internal/postgres"
	"github.com/kirinyoku/party-rsvp/internal/redis"
	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
	"github.com/kirinyoku/party-rsvp/internal/service"
	"github.com/kirinyoku/party-rsvp/internal/service/rsvp"
	httpgin "github.com/kirinyoku/party-rsvp/internal/transport/http/gin"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

const (
	secretAttempts       = 5
	secretAttemptsWindow = 15 * time.Minute
	searchPerMinute      = 60
	idempotencyTTL       = 24 * time.Hour
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	services   *service.Services
	pubsub     *redisrepo.ConfirmationsPubSub
	httpServer *http.Server
	shutdownTP func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	shutdownTP := func(context.Context) error { return nil }
	if cfg.Tracing.OTLPAddr != "" {
		fn, err := setupTracing(ctx, cfg.Tracing.OTLPAddr)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		shutdownTP = fn
		logger.Info("tracing enabled", "otlp_grpc", cfg.Tracing.OTLPAddr)
	}

	pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
	if err != nil {
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: migrate: %w", op, err)
		}
	}

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}

	store := postgresrepo.NewStore(pool)
	pubsub := redisrepo.NewConfirmationsPubSub(rdb)

	rd := service.Redis{
		Cache:    redisrepo.NewCache(rdb),
		Sessions: redisrepo.NewSessionStore(rdb, cfg.Session.TTL),
		PubSub:   pubsub,
		Attempts: redisrepo.NewSlidingWindowLimiter(
			rdb, redisrepo.KeyRateLimitPrefix("secret"), secretAttempts, secretAttemptsWindow,
		),
		Idem: redisrepo.NewIdempotencyStore(rdb, idempotencyTTL),
	}

	ev := cfg.Event
	services := service.NewServices(store, rd, service.Config{
		Prices: ev.Prices,
		Wizard: wizard.Config{
			SeatCapacity:    ev.BusCapacity,
			PaymentURL:      ev.PaymentURL,
			RedirectSeconds: ev.RedirectSeconds,
			Deadline:        ev.Deadline,
		},
		RSVP: rsvp.Config{},
	}, logger)

	router := httpgin.NewRouter(services, httpgin.Options{
		AdminPasswordHash: cfg.Admin.PasswordHash,
		SearchLimiter: redisrepo.NewSlidingWindowLimiter(
			rdb, redisrepo.KeyRateLimitPrefix("search"), searchPerMinute, time.Minute,
		),
	}, logger)

	if cfg.Admin.PasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin routes disabled")
	}

	logger.Info("event loaded",
		"name", ev.Name,
		"deadline", ev.Deadline,
		"bus_capacity", ev.BusCapacity,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		rdb:      rdb,
		services: services,
		pubsub:   pubsub,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTP: shutdownTP,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Seat caches of other replicas are dropped on every change.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.services.Confirmations.InvalidateSeats)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("confirmations subscription: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.shutdownTP(ctx); err != nil {
		a.logger.Warn("tracer shutdown", "error", err)
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("redis close", "error", err)
	}
	a.pool.Close()
}
