// Package service holds the outbound side effects of the workflow that
// are not calls to the reservation API.  Today that is publishing
// reservation events to RabbitMQ.  Errors are returned, not logged; the
// caller decides whether a failure is worth a log line.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    q "github.com/iliyamo/lab-equipment-reservation/internal/queue"
)

// EventPublisher publishes ReservationEvents to the durable
// reservation.events queue.  A connection is opened per publish; the
// event rate is one per user action, so there is no pool.
type EventPublisher struct {
    url string
    log *zap.Logger
}

// dialTimeout bounds the TCP and AMQP handshake when ctx has no sooner
// deadline.
const dialTimeout = 2 * time.Second

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string, log *zap.Logger) *EventPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &EventPublisher{url: url, log: log.Named("publisher")}
}

// Publish sends ev as a persistent JSON message.  The dial is bounded by
// ctx's deadline, or dialTimeout when that is later or absent.
func (p *EventPublisher) Publish(ctx context.Context, ev q.ReservationEvent) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    timeout := dialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.ReservationQueueName, // name
        true,                   // durable
        false,                  // autoDelete
        false,                  // exclusive
        false,                  // noWait
        nil,                    // args
    ); err != nil {
        return fmt.Errorf("rabbitmq declare %s: %w", q.ReservationQueueName, err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         ev.Kind,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                     // default exchange
        q.ReservationQueueName, // routing key = queue name
        false,                  // mandatory
        false,                  // immediate
        pub,
    ); err != nil {
        return fmt.Errorf("rabbitmq publish %s: %w", ev.Kind, err)
    }
    p.log.Debug("event published", zap.String("kind", ev.Kind), zap.String("reservation_id", ev.ReservationID))
    return nil
}
