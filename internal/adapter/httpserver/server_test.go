package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/hafbjorn109/wiperino/internal/adapter/memory"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/auth"
	"github.com/hafbjorn109/wiperino/internal/broadcast"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/gateway"
	"github.com/hafbjorn109/wiperino/internal/platform/config"
	"github.com/hafbjorn109/wiperino/internal/poll"
	"github.com/hafbjorn109/wiperino/internal/rooms"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-at-least-16-chars"

type testEnv struct {
	server      *Server
	http        *httptest.Server
	broadcaster *broadcast.Broadcaster
	polls       *poll.Service
	verifier    *auth.Verifier
	gateway     *metrics.GatewayMetrics
	registry    *prometheus.Registry
}

type envOption func(*config.Config, *Deps)

func withConnectionLimits(globalMax int64, perIP int) envOption {
	return func(_ *config.Config, d *Deps) {
		d.Limits = gateway.NewConnectionLimits(clockwork.NewRealClock(), globalMax, perIP, 1000, 1000)
	}
}

func withProduction() envOption {
	return func(cfg *config.Config, _ *Deps) {
		cfg.AppEnv = "production"
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:    "development",
		Port:      "0",
		AppURL:    "http://localhost:8080",
		JWTSecret: testJWTSecret,
	}
}

// newTestEnv wires the full in-memory stack behind an httptest server.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	clock := clockwork.NewRealClock()
	reg := prometheus.NewRegistry()
	gm := metrics.NewGatewayMetrics(reg)
	pm := metrics.NewPollMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := broadcast.NewBroadcaster(memory.NewTransport(), gm, clock, 10)
	require.NoError(t, b.Listen(ctx))
	t.Cleanup(b.Stop)

	store := memory.NewStore(clock)
	cfg := testConfig()
	polls := poll.NewService(store, pm, time.Hour, cfg.AppURL)
	verifier := auth.NewVerifier(testJWTSecret, clock)

	deps := Deps{
		Gateway: gateway.New(b, rooms.NewTable(polls), gm, clock, gateway.Options{
			MessageRatePerSecond: 100,
			MessageBurst:         100,
		}),
		Resolver:       auth.NewResolver(verifier, nil, store, pm),
		Polls:          polls,
		Publisher:      b,
		Limits:         gateway.NewConnectionLimits(clock, 1000, 1000, 1000, 1000),
		GatewayMetrics: gm,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		Registry:       reg,
		Clock:          clock,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	srv := NewServer(cfg, deps)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &testEnv{
		server:      srv,
		http:        hs,
		broadcaster: b,
		polls:       polls,
		verifier:    verifier,
		gateway:     gm,
		registry:    reg,
	}
}

// newTestServer builds a Server for handler-level tests that do not need
// the real-time stack.
func newTestServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps := Deps{
		GatewayMetrics: metrics.NewGatewayMetrics(reg),
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		Registry:       reg,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(testConfig(), deps)
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(d *Deps) {
		d.HealthChecks = checks
	}
}

func withClock(clock clockwork.Clock) func(*Deps) {
	return func(d *Deps) {
		d.Clock = clock
	}
}

func (e *testEnv) token(t *testing.T, userID int64, username string) string {
	t.Helper()
	raw, err := e.verifier.Sign(&auth.Claims{UserID: auth.AccountID(userID), Username: username})
	require.NoError(t, err)
	return raw
}

func (e *testEnv) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(e.http.URL, "http") + path
}

// dial connects and waits until the connection is registered in room.
func (e *testEnv) dial(t *testing.T, path string, room domain.Room) *ws.Conn {
	t.Helper()
	before := e.broadcaster.ClientCount(room)

	conn, resp, err := ws.DefaultDialer.Dial(e.wsURL(path), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return e.broadcaster.ClientCount(room) == before+1
	}, 2*time.Second, 5*time.Millisecond)
	return conn
}

// dialRefused performs a handshake that is expected to fail and returns
// the HTTP status of the refusal.
func (e *testEnv) dialRefused(t *testing.T, path string, header http.Header) int {
	t.Helper()
	conn, resp, err := ws.DefaultDialer.Dial(e.wsURL(path), header)
	if conn != nil {
		_ = conn.Close()
	}
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp.StatusCode, decoded
}

func send(t *testing.T, conn *ws.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}
