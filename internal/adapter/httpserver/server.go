package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/gateway"
	"github.com/hafbjorn109/wiperino/internal/platform/config"
	"github.com/hafbjorn109/wiperino/internal/poll"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type tokenResolver interface {
	ResolveAccount(ctx context.Context, raw string) domain.Identity
	ResolvePollToken(ctx context.Context, token string, overlay bool) (string, domain.Role, error)
}

type pollService interface {
	CreateSession(ctx context.Context) (*poll.CreatedSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.PollSession, error)
	AddQuestion(ctx context.Context, sessionID, text string, answers []string) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, sessionID, questionID string) error
	Questions(ctx context.Context, sessionID string) ([]*domain.Question, error)
}

type roomPublisher interface {
	Publish(ctx context.Context, room domain.Room, data, overlay []byte) error
}

type sessionServer interface {
	Serve(ctx context.Context, conn *websocket.Conn, join gateway.Join) error
}

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Gateway        sessionServer
	Resolver       tokenResolver
	Polls          pollService
	Publisher      roomPublisher
	Limits         *gateway.ConnectionLimits
	GatewayMetrics *metrics.GatewayMetrics
	HTTPMetrics    *metrics.HTTPMetrics
	Registry       *prometheus.Registry
	HealthChecks   []HealthCheck
	Clock          clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	gateway   sessionServer
	resolver  tokenResolver
	polls     pollService
	publisher roomPublisher
	limits    *gateway.ConnectionLimits

	gatewayMetrics *metrics.GatewayMetrics
	httpMetrics    *metrics.HTTPMetrics
	registry       *prometheus.Registry

	upgrader     websocket.Upgrader
	checkOrigin  func(r *http.Request) bool
	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	checkOrigin := NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment())

	srv := &Server{
		echo:           e,
		config:         cfg,
		gateway:        deps.Gateway,
		resolver:       deps.Resolver,
		polls:          deps.Polls,
		publisher:      deps.Publisher,
		limits:         deps.Limits,
		gatewayMetrics: deps.GatewayMetrics,
		httpMetrics:    deps.HTTPMetrics,
		registry:       deps.Registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		checkOrigin:  checkOrigin,
		healthChecks: deps.HealthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
