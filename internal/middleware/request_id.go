package middleware

import (
    "log/slog"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/geo-reservation/internal/resolver"
)

// HeaderXRequestID carries the request id in both directions.
const HeaderXRequestID = "X-Request-Id"

// RequestID reuses the caller's X-Request-Id or generates one, echoes it on
// the response and attaches a logger tagged with it to the request context.
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(HeaderXRequestID)
            if id == "" {
                id = uuid.New().String()
            }
            c.Set("request_id", id)
            c.Response().Header().Set(HeaderXRequestID, id)

            reqLogger := logger.With(slog.String("request_id", id))
            ctx := resolver.WithLogger(c.Request().Context(), reqLogger)
            c.SetRequest(c.Request().WithContext(ctx))
            return next(c)
        }
    }
}
