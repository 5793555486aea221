package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Check is a named dependency check reported by the health endpoint, e.g.
// the Redis counter store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// RunChecks checks every dependency and returns a status per name.
func RunChecks(ctx context.Context, checks []Check) (map[string]string, bool) {
	out := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			out[c.Name] = err.Error()
			healthy = false
			continue
		}
		out[c.Name] = "ok"
	}
	return out, healthy
}

// HealthHandler returns a handler for the dependency health check endpoint.
func HealthHandler(pool *pgxpool.Pool, extra ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		checks := append([]Check{{Name: "postgres", Ping: pool.Ping}}, extra...)
		deps, healthy := RunChecks(ctx, checks)
		stats := GetPoolStats(pool)

		if !healthy {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":       "unhealthy",
				"dependencies": deps,
				"pool":         stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":       "healthy",
			"dependencies": deps,
			"pool":         stats,
		})
	}
}
