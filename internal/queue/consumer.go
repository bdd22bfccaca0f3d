package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

const auditFileName = "reservation.log"

// AuditConsumer reads reservation.events and appends one line per event to
// <dir>/reservation.log.
type AuditConsumer struct {
    url    string
    dir    string
    logger *slog.Logger
}

// NewAuditConsumer returns a consumer writing into dir.
func NewAuditConsumer(url, dir string, logger *slog.Logger) *AuditConsumer {
    return &AuditConsumer{url: url, dir: dir, logger: logger}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
// Messages that cannot be handled are rejected without requeue so a bad
// payload cannot spin the loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(a.url)
        if err != nil {
            a.logger.Warn("audit-consumer: failed to dial broker", slog.Any("error", err), slog.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = a.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        a.logger.Warn("audit-consumer: consume loop ended, reconnecting", slog.Any("error", err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        a.logger.Warn("audit-consumer: set QoS failed", slog.Any("error", err))
    }
    if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := a.HandleMessage(d.Body); err != nil {
            a.logger.Error("audit-consumer: handle message failed", slog.Any("error", err))
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// HandleMessage decodes one event and appends its audit line.
func (a *AuditConsumer) HandleMessage(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(a.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", a.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(a.dir, auditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write audit line: %w", err)
    }
    return nil
}

// FormatAuditLine renders ev as a single newline-terminated line.
func FormatAuditLine(ev ReservationEvent) string {
    switch ev.Type {
    case EventCreated:
        return fmt.Sprintf("[%s] Reservation created | reservation_id=%d | user_id=%q | longitude=%g | latitude=%g | state=%s\n",
            ev.OccurredAt, ev.ReservationID, ev.UserID, ev.Longitude, ev.Latitude, ev.State)
    case EventStateChanged:
        return fmt.Sprintf("[%s] Reservation state changed | reservation_id=%d | state=%s | affected_rows=%d\n",
            ev.OccurredAt, ev.ReservationID, ev.State, ev.AffectedRows)
    }
    return fmt.Sprintf("[%s] %s | reservation_id=%d\n", ev.OccurredAt, ev.Type, ev.ReservationID)
}
