package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/httpserver"
	"github.com/hafbjorn109/wiperino/internal/adapter/memory"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/adapter/postgres"
	"github.com/hafbjorn109/wiperino/internal/adapter/redis"
	"github.com/hafbjorn109/wiperino/internal/auth"
	"github.com/hafbjorn109/wiperino/internal/broadcast"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/gateway"
	"github.com/hafbjorn109/wiperino/internal/platform/config"
	"github.com/hafbjorn109/wiperino/internal/platform/logging"
	"github.com/hafbjorn109/wiperino/internal/platform/version"
	"github.com/hafbjorn109/wiperino/internal/poll"
	"github.com/hafbjorn109/wiperino/internal/rooms"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

type backend struct {
	store     domain.EphemeralStore
	transport broadcast.Transport
	checks    []httpserver.HealthCheck
	close     func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupBackend connects to Redis when configured. Without REDIS_URL the
// gateway keeps state and fan-out in process, which only works for a
// single instance.
func setupBackend(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) backend {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-memory store and bus (single instance only)")
		return backend{
			store:     memory.NewStore(clockwork.NewRealClock()),
			transport: memory.NewTransport(),
			close:     func() {},
		}
	}

	rm := metrics.NewRedisMetrics(reg)
	client, err := redis.NewClient(cfg.RedisURL, redis.NewMetricsHook(rm), redis.NewCircuitBreakerHook(rm))
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return backend{
		store:     redis.NewStore(client),
		transport: redis.NewTransport(client, cfg.BusChannelPrefix),
		checks:    []httpserver.HealthCheck{{Name: "redis", Check: client.Ping}},
		close:     func() { _ = client.Close() },
	}
}

// setupAccounts returns nil when DATABASE_URL is unset; display names then
// come from the credential itself.
func setupAccounts(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.AccountDirectory, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	dm := metrics.NewDBMetrics(reg)
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL, postgres.NewMetricsTracer(dm))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	return postgres.NewBreakerDirectory(postgres.NewAccountDirectory(pool), dm), pool
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(reg)
	pollMetrics := metrics.NewPollMetrics(reg)

	be := setupBackend(ctx, cfg, reg)
	defer be.close()

	accounts, pool := setupAccounts(ctx, cfg, reg)
	checks := be.checks
	if pool != nil {
		defer pool.Close()
		checks = append(checks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	broadcaster := broadcast.NewBroadcaster(be.transport, gatewayMetrics, clock, cfg.MaxClientsPerRoom)
	if err := broadcaster.Listen(ctx); err != nil {
		slog.Error("Failed to start broadcast listener", "error", err)
		os.Exit(1)
	}

	polls := poll.NewService(be.store, pollMetrics, cfg.PollSessionTTL, cfg.AppURL)
	resolver := auth.NewResolver(auth.NewVerifier(cfg.JWTSecret, clock), accounts, be.store, pollMetrics)

	gw := gateway.New(broadcaster, rooms.NewTable(polls), gatewayMetrics, clock, gateway.Options{
		MessageRatePerSecond: cfg.MessageRatePerSecond,
		MessageBurst:         cfg.MessageBurst,
	})

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Gateway:   gw,
		Resolver:  resolver,
		Polls:     polls,
		Publisher: broadcaster,
		Limits: gateway.NewConnectionLimits(clock, int64(cfg.MaxWebSocketConnections), cfg.MaxConnectionsPerIP,
			cfg.ConnectionRatePerSecond, cfg.ConnectionBurst),
		GatewayMetrics: gatewayMetrics,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		Registry:       reg,
		HealthChecks:   checks,
		Clock:          clock,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		broadcaster.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
