package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/hafbjorn109/wiperino/internal/broadcast"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/hafbjorn109/wiperino/internal/protocol"
	"github.com/hafbjorn109/wiperino/internal/rooms"
	"golang.org/x/time/rate"
)

// Session is the protocol state machine of one connection: it is
// connecting until the room accepts it, joined while frames are read, and
// closed once the read side fails.
type Session struct {
	gateway *Gateway
	conn    *websocket.Conn
	client  *broadcast.Client
	handler rooms.Handler
	member  rooms.Member
	limiter *rate.Limiter
	logger  *slog.Logger
}

func (s *Session) run(ctx context.Context) error {
	g := s.gateway
	s.conn.SetReadLimit(maxFrameSize)
	s.client = broadcast.NewClient(s.conn, s.member.Role, g.clock, g.metrics)

	if err := g.broadcaster.Register(s.member.Room, s.client); err != nil {
		g.metrics.RejectedHandshakes.WithLabelValues("room_full").Inc()
		s.logger.WarnContext(ctx, "Join refused", "error", err)
		s.client.CloseGraceful("room is full")
		return fmt.Errorf("failed to join room %s: %w", s.member.Room, err)
	}

	kind := string(s.member.Room.Kind)
	g.metrics.ActiveConnections.WithLabelValues(kind).Inc()
	s.logger.DebugContext(ctx, "Session joined")

	defer func() {
		g.broadcaster.Unregister(s.member.Room, s.client)
		s.client.Close()
		g.metrics.ActiveConnections.WithLabelValues(kind).Dec()
		s.logger.DebugContext(ctx, "Session closed")
	}()

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.DebugContext(ctx, "Connection lost", "error", err)
			}
			return nil
		}
		s.client.Touch()

		if !s.limiter.AllowN(g.clock.Now(), 1) {
			g.metrics.FramesTotal.WithLabelValues(kind, "rate_limited").Inc()
			s.reply(apperrors.ValidationError("rate limit exceeded"))
			continue
		}

		s.dispatch(ctx, frame)
	}
}

// dispatch handles one frame to completion. Handler work runs on a context
// that survives the connection so a disconnect mid-frame cannot cut a
// read-modify-write short.
func (s *Session) dispatch(ctx context.Context, frame []byte) {
	g := s.gateway
	kind := string(s.member.Room.Kind)
	start := g.clock.Now()
	defer func() {
		g.metrics.FrameDuration.WithLabelValues(kind).Observe(g.clock.Since(start).Seconds())
	}()

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.HandlerTimeout)
	defer cancel()

	broadcasts, handleErr := s.handler.Handle(hctx, s.member, frame)

	for _, b := range broadcasts {
		if err := s.publish(hctx, b); err != nil {
			g.metrics.FramesTotal.WithLabelValues(kind, "error").Inc()
			s.logger.ErrorContext(ctx, "Broadcast failed", "error", err)
			s.reply(apperrors.InternalError("broadcast failed", err))
			return
		}
	}

	if handleErr != nil {
		se := apperrors.AsStructuredError(handleErr)
		g.metrics.FramesTotal.WithLabelValues(kind, string(se.Type)).Inc()
		switch se.Type {
		case apperrors.TypeInternal, apperrors.TypeExternal:
			s.logger.ErrorContext(ctx, "Frame handling failed", "error", handleErr)
		default:
			s.logger.DebugContext(ctx, "Frame rejected", "error", handleErr)
		}
		s.reply(handleErr)
		return
	}

	g.metrics.FramesTotal.WithLabelValues(kind, "ok").Inc()
}

func (s *Session) publish(ctx context.Context, b protocol.Broadcast) error {
	data, overlay, err := b.Encode()
	if err != nil {
		return err
	}
	return s.gateway.broadcaster.Publish(ctx, s.member.Room, data, overlay)
}

// reply sends an error frame to this connection only.
func (s *Session) reply(err error) {
	if !s.client.Send(protocol.EncodeError(err)) {
		s.logger.Debug("Dropped error reply, send buffer full")
	}
}
