// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends JSON events to a durable queue named after the routing
// key.  A Publisher with an empty URL is disabled and Publish is a no-op, so
// the application runs without a broker.
type Publisher struct {
    url string
    log *logrus.Logger
}

// New returns a publisher for url.  log may be nil.
func New(url string, log *logrus.Logger) *Publisher {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Publisher{url: url, log: log}
}

// Enabled reports whether a broker URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// Publish marshals event and publishes it to the routingKey queue.  The
// function attempts to be robust and to never panic; any error is logged
// and returned so the caller can choose to ignore it.  Messages are marked
// as persistent.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
    if !p.Enabled() {
        return nil
    }
    log := p.log.WithFields(logrus.Fields{"module": "queue_publisher", "routing_key": routingKey})

    body, err := json.Marshal(event)
    if err != nil {
        log.WithError(err).Error("marshal event failed")
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.WithError(err).Error("dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Error("channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        routingKey, // name
        true,       // durable
        false,      // autoDelete
        false,      // exclusive
        false,      // noWait
        nil,        // args
    ); err != nil {
        log.WithError(err).Error("queue declare failed")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",         // default exchange
        routingKey, // routing key = queue name
        false,      // mandatory
        false,      // immediate
        pub,
    ); err != nil {
        log.WithError(err).Error("publish failed")
        return err
    }
    return nil
}
