package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSets_RegisterOnOneRegistry(t *testing.T) {
	reg := NewRegistry()

	gw := NewGatewayMetrics(reg)
	poll := NewPollMetrics(reg)
	rd := NewRedisMetrics(reg)
	h := NewHTTPMetrics(reg)
	db := NewDBMetrics(reg)

	gw.FramesTotal.WithLabelValues("poll", "ok").Inc()
	poll.VotesTotal.WithLabelValues("applied").Add(2)
	rd.CircuitState.Set(2)
	h.ErrorsTotal.WithLabelValues("validation").Inc()
	db.ErrorsTotal.WithLabelValues("SELECT").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(gw.FramesTotal.WithLabelValues("poll", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(poll.VotesTotal.WithLabelValues("applied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rd.CircuitState))
	assert.Equal(t, 1.0, testutil.ToFloat64(db.ErrorsTotal.WithLabelValues("SELECT")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	gw := NewGatewayMetrics(reg)
	gw.SlowClientsEvicted.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wiperino_broadcast_slow_clients_evicted_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func histogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := obs.(prometheus.Metric)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestHTTPMiddleware_RecordsRoutedRequests(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/polls/:token/questions", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/ws/runs/:run_id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/api/polls/a/questions", "/api/polls/b/questions", "/ws/runs/1"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	route := []string{http.MethodGet, "/api/polls/:token/questions", "2xx"}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(route...)))
	assert.Equal(t, uint64(2), histogramCount(t, m.RequestDuration.WithLabelValues(route...)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal), "websocket routes are not recorded")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusCreated))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
	assert.Equal(t, "unknown", statusClass(0))
}
