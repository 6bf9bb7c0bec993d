package service

import (
    "context"
    "net"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    q "github.com/iliyamo/lab-equipment-reservation/internal/queue"
)

// silentBroker accepts connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)
    done := make(chan struct{})
    t.Cleanup(func() {
        close(done)
        _ = ln.Close()
    })
    go func() {
        for {
            c, err := ln.Accept()
            if err != nil {
                return
            }
            go func() {
                <-done
                _ = c.Close()
            }()
        }
    }()
    return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishDialHonoursContextDeadline(t *testing.T) {
    core, logs := observer.New(zapcore.DebugLevel)
    p := NewEventPublisher(silentBroker(t), zap.New(core))

    ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
    defer cancel()

    start := time.Now()
    err := p.Publish(ctx, q.ReservationEvent{Kind: "approved", ReservationID: "r1"})
    require.Error(t, err)
    assert.Contains(t, err.Error(), "rabbitmq dial")
    assert.Less(t, time.Since(start), 1500*time.Millisecond)
    assert.Zero(t, logs.Len(), "failures are left to the caller to log")
}

func TestPublishSkipsDialWhenContextDone(t *testing.T) {
    core, logs := observer.New(zapcore.DebugLevel)
    p := NewEventPublisher(silentBroker(t), zap.New(core))

    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    err := p.Publish(ctx, q.ReservationEvent{Kind: "approved", ReservationID: "r1"})
    assert.ErrorIs(t, err, context.Canceled)
    assert.Zero(t, logs.Len())
}
