package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/broadcast"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/platform/correlation"
	"github.com/hafbjorn109/wiperino/internal/rooms"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	defaultHandlerTimeout = 10 * time.Second
	maxFrameSize          = 64 * 1024
)

// Options tune per-connection behaviour.
type Options struct {
	MessageRatePerSecond float64
	MessageBurst         int
	HandlerTimeout       time.Duration
}

// Gateway owns the dependencies shared by all sessions.
type Gateway struct {
	broadcaster *broadcast.Broadcaster
	handlers    *rooms.Table
	metrics     *metrics.GatewayMetrics
	clock       clockwork.Clock
	opts        Options
}

func New(b *broadcast.Broadcaster, handlers *rooms.Table, m *metrics.GatewayMetrics, clock clockwork.Clock, opts Options) *Gateway {
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	return &Gateway{
		broadcaster: b,
		handlers:    handlers,
		metrics:     m,
		clock:       clock,
		opts:        opts,
	}
}

// Join is the outcome of a successful handshake.
type Join struct {
	Room     domain.Room
	Identity domain.Identity
	Role     domain.Role
}

var ErrNoHandler = errors.New("no handler for room")

// Serve runs a session on an upgraded connection and returns once the
// connection is closed. The connection is always closed on return.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn, join Join) error {
	handler, ok := g.handlers.For(join.Room, join.Role)
	if !ok {
		_ = conn.Close()
		return ErrNoHandler
	}

	ctx = correlation.Ensure(ctx)
	s := &Session{
		gateway: g,
		conn:    conn,
		handler: handler,
		member:  rooms.Member{Room: join.Room, Identity: join.Identity, Role: join.Role},
		limiter: rate.NewLimiter(rate.Limit(g.opts.MessageRatePerSecond), g.opts.MessageBurst),
		logger: slog.Default().With(
			"room", join.Room.Key(),
			"role", string(join.Role),
		),
	}
	return s.run(ctx)
}
