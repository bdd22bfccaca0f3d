package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/geo-reservation/internal/config"
)

// Publisher sends ReservationEvents to the reservation.events queue.  Each
// Publish dials the broker, declares the queue and sends one persistent
// message.  A disabled Publisher accepts every event and does nothing.
type Publisher struct {
    enabled bool
    url     string
    logger  *slog.Logger
}

// NewPublisher builds a Publisher from the AMQP configuration.
func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
    return &Publisher{enabled: cfg.AMQP.Enabled, url: cfg.AMQP.URL, logger: logger}
}

// Publish sends ev.  Errors are logged and returned so the caller can choose
// to ignore them; Publish never panics.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
    if p == nil || !p.enabled {
        return nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.logger.Error("rabbitmq: dial failed", slog.Any("error", err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Error("rabbitmq: channel open failed", slog.Any("error", err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        QueueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        p.logger.Error("rabbitmq: queue declare failed", slog.Any("error", err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        QueueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        p.logger.Error("rabbitmq: publish failed", slog.Any("error", err))
        return err
    }
    return nil
}
