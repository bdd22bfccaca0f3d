package main

import (
    "context"
    "errors"
    "log/slog"

    "github.com/redis/go-redis/v9"
    "go.uber.org/fx"
    "go.uber.org/fx/fxevent"

    "github.com/iliyamo/geo-reservation/internal/config"
    "github.com/iliyamo/geo-reservation/internal/database"
    "github.com/iliyamo/geo-reservation/internal/handler"
    "github.com/iliyamo/geo-reservation/internal/logger"
    "github.com/iliyamo/geo-reservation/internal/queue"
    "github.com/iliyamo/geo-reservation/internal/repository"
    "github.com/iliyamo/geo-reservation/internal/resolver"
    "github.com/iliyamo/geo-reservation/internal/server"
)

func main() {
    fx.New(
        fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
            return &fxevent.SlogLogger{Logger: l}
        }),
        injectInfra(),
        injectDomain(),
        fx.Provide(
            handler.NewReservationHandler,
            server.New,
        ),
        fx.Invoke(
            func(*server.Server) {},
            startAuditConsumer,
        ),
    ).Run()
}

func injectInfra() fx.Option {
    return fx.Provide(
        config.Load,
        logger.New,
        database.New,
        newRedisClient,
    )
}

func injectDomain() fx.Option {
    return fx.Provide(
        fx.Annotate(repository.NewReservationRepo, fx.As(new(resolver.Store))),
        fx.Annotate(queue.NewPublisher, fx.As(new(resolver.EventPublisher))),
        resolver.New,
    )
}

// newRedisClient returns the rate limiter's client, closed on shutdown.  It
// is nil when rate limiting is off or Redis is unreachable.
func newRedisClient(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) *redis.Client {
    rdb := config.NewRedisClient(cfg, logger)
    if rdb != nil {
        lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
    }
    return rdb
}

// startAuditConsumer runs the reservation audit consumer for the lifetime
// of the application when AMQP is enabled.
func startAuditConsumer(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) {
    if !cfg.AMQP.Enabled {
        return
    }
    consumer := queue.NewAuditConsumer(cfg.AMQP.URL, cfg.AMQP.AuditLogDir, logger)
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    lc.Append(fx.Hook{
        OnStart: func(context.Context) error {
            go func() {
                defer close(done)
                if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                    logger.Error("audit consumer stopped", slog.Any("error", err))
                }
            }()
            return nil
        },
        OnStop: func(stopCtx context.Context) error {
            cancel()
            select {
            case <-done:
            case <-stopCtx.Done():
            }
            return nil
        },
    })
}
