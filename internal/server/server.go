// Package server owns the echo instance and its fx lifecycle.
package server

import (
    "context"
    "log/slog"
    "net"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/pkg/errors"
    "github.com/redis/go-redis/v9"
    slogecho "github.com/samber/slog-echo"
    "go.uber.org/fx"

    "github.com/iliyamo/geo-reservation/internal/config"
    "github.com/iliyamo/geo-reservation/internal/handler"
    "github.com/iliyamo/geo-reservation/internal/middleware"
    "github.com/iliyamo/geo-reservation/internal/router"
)

const shutdownTimeout = 10 * time.Second

// Params are the dependencies of the HTTP server.
type Params struct {
    fx.In
    fx.Lifecycle

    Config  config.Config
    Logger  *slog.Logger
    Handler *handler.ReservationHandler
    Redis   *redis.Client `optional:"true"`
}

// Server serves the reservation API.
type Server struct {
    cfg    config.Config
    logger *slog.Logger
    echo   *echo.Echo
}

// New builds the echo instance, registers every route and hooks start and
// shutdown into the fx lifecycle.
func New(p Params) *Server {
    e := NewEcho(p.Config, p.Logger, p.Handler, p.Redis)
    s := &Server{cfg: p.Config, logger: p.Logger, echo: e}
    p.Append(fx.Hook{
        OnStart: s.start,
        OnStop:  s.stop,
    })
    return s
}

// NewEcho returns an echo instance with middleware and routes in place.
func NewEcho(cfg config.Config, logger *slog.Logger, h *handler.ReservationHandler, rdb *redis.Client) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Use(echomw.Recover())
    e.Use(middleware.RequestID(logger))
    e.Use(slogecho.New(logger))

    router.RegisterRoutes(e)
    router.RegisterReservations(e, h, cfg.RateLimit, rdb, logger)
    router.RegisterStatic(e, cfg.StaticDir)
    return e
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) start(context.Context) error {
    addr := net.JoinHostPort("", s.cfg.Port)
    ln, err := net.Listen("tcp", addr)
    if err != nil {
        return errors.Wrapf(err, "listen on %s", addr)
    }
    s.echo.Listener = ln
    s.logger.Info("listening", slog.String("addr", addr), slog.String("env", s.cfg.Env))
    go func() {
        if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            s.logger.Error("http server stopped", slog.Any("error", err))
        }
    }()
    return nil
}

func (s *Server) stop(ctx context.Context) error {
    ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
    defer cancel()
    s.logger.Info("shutting down http server")
    return errors.WithStack(s.echo.Shutdown(ctx))
}
