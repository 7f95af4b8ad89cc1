package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/gateway"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// Trailing slashes are stripped before routing, so "/ws/runs/7/" and
// "/ws/runs/7" reach the same handler.
func (s *Server) registerWebSocketRoutes() {
	ws := s.echo.Group("/ws")
	ws.GET("/runs/:run_id", s.handleRunSocket(domain.CounterRoom, false))
	ws.GET("/runs/:run_id/timer", s.handleRunSocket(domain.TimerRoom, false))
	ws.GET("/overlay/runs/:run_id", s.handleRunSocket(domain.CounterRoom, true))
	ws.GET("/overlay/runs/:run_id/timer", s.handleRunSocket(domain.TimerRoom, true))
	ws.GET("/polls/:token", s.handlePollSocket(false))
	ws.GET("/overlay/polls/:token", s.handlePollSocket(true))
}

func (s *Server) handleRunSocket(roomFor func(runID int64) domain.Room, overlay bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		runID, err := strconv.ParseInt(c.Param("run_id"), 10, 64)
		if err != nil || runID <= 0 {
			s.gatewayMetrics.RejectedHandshakes.WithLabelValues("invalid_room").Inc()
			return apperrors.FieldError("run_id", "must be a positive integer")
		}

		join := gateway.Join{
			Room: roomFor(runID),
			Role: domain.RoleViewer,
		}
		if overlay {
			join.Role = domain.RoleOverlay
		} else {
			join.Identity = s.resolver.ResolveAccount(c.Request().Context(), c.QueryParam("token"))
		}

		return s.upgrade(c, join)
	}
}

func (s *Server) handlePollSocket(overlay bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, role, err := s.resolver.ResolvePollToken(c.Request().Context(), c.Param("token"), overlay)
		if errors.Is(err, domain.ErrTokenNotFound) {
			s.gatewayMetrics.RejectedHandshakes.WithLabelValues("unknown_token").Inc()
			return apperrors.ForbiddenError("unknown poll token")
		}
		if err != nil {
			return apperrors.ExternalError("failed to resolve poll token", err)
		}

		return s.upgrade(c, gateway.Join{Room: domain.PollRoom(sessionID), Role: role})
	}
}

// upgrade applies the origin policy and connection limits, upgrades the
// request and blocks for the lifetime of the session.
func (s *Server) upgrade(c echo.Context, join gateway.Join) error {
	if !s.checkOrigin(c.Request()) {
		s.gatewayMetrics.RejectedHandshakes.WithLabelValues("origin").Inc()
		return apperrors.ForbiddenError("origin not allowed")
	}

	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		s.gatewayMetrics.RejectedHandshakes.WithLabelValues(string(reason)).Inc()
		status := http.StatusTooManyRequests
		if reason == gateway.LimitReasonGlobal {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]string{"error": "too many connections"})
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the failure response.
		s.gatewayMetrics.RejectedHandshakes.WithLabelValues("upgrade_failed").Inc()
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "error", err)
		return nil
	}

	if err := s.gateway.Serve(c.Request().Context(), conn, join); err != nil {
		slog.WarnContext(c.Request().Context(), "WebSocket session ended with error", "room", join.Room.Key(), "error", err)
	}
	return nil
}
