package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Idle per-address limiters are forgotten after this long.
const apiLimiterIdleExpiry = 5 * time.Minute

var errAPIRateLimited = apperrors.ValidationError("rate limit exceeded")

// newRateLimiter keeps one token bucket per client address for the REST API.
func newRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	buckets := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: apiLimiterIdleExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store:               buckets,
		IdentifierExtractor: clientAddress,
		DenyHandler: func(c echo.Context, addr string, _ error) error {
			slog.DebugContext(c.Request().Context(), "API request rate limited", "addr", addr, "path", c.Path())
			return c.JSON(http.StatusTooManyRequests, errAPIRateLimited.ToResponse())
		},
	})
}

func clientAddress(c echo.Context) (string, error) {
	return c.RealIP(), nil
}
