// Package router registers the HTTP routes of the service.
package router

import (
    "log/slog"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/geo-reservation/internal/config"
    "github.com/iliyamo/geo-reservation/internal/handler"
    "github.com/iliyamo/geo-reservation/internal/middleware"
)

// RegisterRoutes registers routes that are not part of the reservation API:
// the health check and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterReservations registers the reservation endpoints behind the rate
// limiter.  rdb may be nil, in which case no limit applies.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, rl config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) {
    limit := middleware.NewTokenBucket(rl, rdb, logger)
    e.GET("/reservation", h.Reserve, limit)
    e.GET("/reservationAll", h.ListAll, limit)
    e.GET("/reservationAll.geojson", h.GeoJSON, limit)
}

// RegisterStatic serves files from dir at the root path.  An empty dir
// disables static serving.
func RegisterStatic(e *echo.Echo, dir string) {
    if dir == "" {
        return
    }
    e.Static("/", dir)
}
