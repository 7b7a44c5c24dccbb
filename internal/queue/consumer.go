// Package queue contains the background consumer that listens to the
// finance.payouts queue, stores each payout and notifies the realtime hub.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// PayoutStore persists payouts received from the broker.
type PayoutStore interface {
    Upsert(ctx context.Context, p model.Payout) error
}

// PayoutConsumer applies payout events.  Hub may be nil.
type PayoutConsumer struct {
    URL     string
    Payouts PayoutStore
    Hub     *realtime.Hub
    Log     *logrus.Logger
}

// Start connects to RabbitMQ, declares the finance.payouts queue (durable),
// and consumes messages until ctx is cancelled.  It runs a reconnect loop
// with exponential backoff; processing errors are logged and the offending
// message is rejected so the server keeps operating.
func (c *PayoutConsumer) Start(ctx context.Context) error {
    log := c.Log.WithField("module", "payout-consumer")
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
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
        log.WithError(err).Warn("consume loop ended; reconnecting")
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

func (c *PayoutConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("payout-consumer: set QoS failed")
    }

    if _, err := ch.QueueDeclare(PayoutQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(PayoutQueue, "", false, false, false, false, nil)
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
            if err := c.Handle(ctx, d.Body); err != nil {
                c.Log.WithError(err).WithField("module", "payout-consumer").Error("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body, stores the payout and publishes
// finance.payout_updated on the hub.
func (c *PayoutConsumer) Handle(ctx context.Context, body []byte) error {
    var ev PayoutEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    p, err := ev.Payout()
    if err != nil {
        return err
    }
    if err := c.Payouts.Upsert(ctx, p); err != nil {
        return fmt.Errorf("upsert payout %s: %w", p.ID, err)
    }
    if c.Hub != nil {
        if err := c.Hub.PublishJSON(realtime.TopicPayoutUpdated, p); err != nil {
            return fmt.Errorf("notify: %w", err)
        }
    }
    return nil
}
