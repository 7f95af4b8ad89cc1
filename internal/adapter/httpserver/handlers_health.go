package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hafbjorn109/wiperino/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, e.g. a Redis or Postgres ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthReport struct {
	Status      string            `json:"status"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

type livenessReport struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	Connections int64   `json:"connections"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.probe(startupProbeTimeout))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.probe(readinessProbeTimeout))
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	report := livenessReport{
		Status: "ok",
		Uptime: s.clock.Since(s.startTime).Seconds(),
	}
	if s.limits != nil {
		report.Connections = s.limits.Current()
	}
	if err := c.JSON(http.StatusOK, report); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// probe runs every dependency check concurrently under timeout. The
// response names the first failing check in registration order.
func (s *Server) probe(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		results := make([]error, len(s.healthChecks))
		var wg sync.WaitGroup
		for i, hc := range s.healthChecks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = hc.Check(ctx)
			}()
		}
		wg.Wait()

		report := healthReport{Status: "ready"}
		status := http.StatusOK
		if len(s.healthChecks) > 0 {
			report.Checks = make(map[string]string, len(s.healthChecks))
		}
		for i, hc := range s.healthChecks {
			if results[i] == nil {
				report.Checks[hc.Name] = "ok"
				continue
			}
			report.Checks[hc.Name] = results[i].Error()
			if report.FailedCheck == "" {
				report.Status = "unhealthy"
				report.FailedCheck = hc.Name
				report.Error = results[i].Error()
				status = http.StatusServiceUnavailable
			}
		}

		if err := c.JSON(status, report); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
