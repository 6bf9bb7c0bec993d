package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer listens to reservation.events and appends one line per
// event to <dir>/reservation.log.
type AuditConsumer struct {
    url string
    dir string
    log *zap.Logger
}

// NewAuditConsumer returns a consumer for the broker at url writing into dir
// ("logs" when empty).
func NewAuditConsumer(url, dir string, log *zap.Logger) *AuditConsumer {
    if dir == "" {
        dir = "logs"
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &AuditConsumer{url: url, dir: dir, log: log.Named("audit-consumer")}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  A lost connection is re-dialled with exponential backoff
// capped at 30s.  Messages that cannot be handled are rejected without
// requeue so one bad payload cannot spin the loop.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
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

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(ReservationQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(ReservationQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.log.Warn("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and appends it to the audit file.
func (c *AuditConsumer) Handle(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Kind == "" || ev.ReservationID == "" {
        return errors.New("event without kind or reservation id")
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, "reservation.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human-friendly line ending in "\n".
func FormatLine(ev ReservationEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | reservation_id=%s", ev.OccurredAt, ev.Kind, ev.ReservationID)
    if ev.Code != "" {
        fmt.Fprintf(&b, " | code=%s", ev.Code)
    }
    if ev.Subject != "" {
        fmt.Fprintf(&b, " | subject=%q", ev.Subject)
    }
    if ev.Status != "" {
        fmt.Fprintf(&b, " | status=%s", ev.Status)
    }
    fmt.Fprintf(&b, " | actor=%s", ev.Actor)
    if ev.Reason != "" {
        fmt.Fprintf(&b, " | reason=%q", ev.Reason)
    }
    if ev.ItemCount > 0 {
        fmt.Fprintf(&b, " | items=%d", ev.ItemCount)
    }
    b.WriteByte('\n')
    return b.String()
}
