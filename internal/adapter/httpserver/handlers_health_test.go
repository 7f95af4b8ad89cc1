package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, srv *Server, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestProbes(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "ready"},
		},
		{
			name: "all healthy",
			checks: []HealthCheck{
				{Name: "redis", Check: healthOK},
				{Name: "postgres", Check: healthOK},
			},
			wantStatus: http.StatusOK,
			wantBody: map[string]any{
				"status": "ready",
				"checks": map[string]any{"redis": "ok", "postgres": "ok"},
			},
		},
		{
			name: "redis down",
			checks: []HealthCheck{
				{Name: "redis", Check: healthErr("connection refused")},
				{Name: "postgres", Check: healthOK},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: map[string]any{
				"status":       "unhealthy",
				"failed_check": "redis",
				"error":        "connection refused",
				"checks":       map[string]any{"redis": "connection refused", "postgres": "ok"},
			},
		},
		{
			name: "both down reports the first registered",
			checks: []HealthCheck{
				{Name: "redis", Check: healthErr("connection refused")},
				{Name: "postgres", Check: healthErr("database unreachable")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: map[string]any{
				"status":       "unhealthy",
				"failed_check": "redis",
				"error":        "connection refused",
				"checks":       map[string]any{"redis": "connection refused", "postgres": "database unreachable"},
			},
		},
	}

	for _, tt := range tests {
		for _, path := range []string{"/health/startup", "/health/ready"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				srv := newTestServer(t, withHealthChecks(tt.checks...))

				status, body := get(t, srv, path)

				assert.Equal(t, tt.wantStatus, status)
				assert.Equal(t, tt.wantBody, body)
			})
		}
	}
}

func TestProbe_RunsChecksConcurrently(t *testing.T) {
	release := make(chan struct{})
	waiting := func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	opener := func(context.Context) error {
		close(release)
		return nil
	}

	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: waiting},
		HealthCheck{Name: "postgres", Check: opener},
	))

	status, _ := get(t, srv, "/health/ready")
	assert.Equal(t, http.StatusOK, status)
}

func TestLiveness(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := newTestServer(t, withClock(clock))
	clock.Advance(90 * time.Second)

	status, body := get(t, srv, "/health/live")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 90.0, body["uptime"], 0.001)
	assert.Equal(t, 0.0, body["connections"])
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t)

	status, body := get(t, srv, "/version/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "wiperino-gateway", body["service"])
	for _, key := range []string{"version", "commit", "build_time", "go_version"} {
		assert.Contains(t, body, key)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wiperino_rooms_active")
}
