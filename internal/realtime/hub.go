// Package realtime is the in-process event channel.  Producers (the broker
// consumer, the schedule service, background jobs) publish events; the
// response cache and the dashboard stream subscribe to them.  Delivery is
// synchronous and in subscription order.
package realtime

import (
    "encoding/json"
    "sync"
    "time"

    "github.com/sirupsen/logrus"
)

// Topics published inside the process.
const (
    TopicPayoutUpdated     = "finance.payout_updated"
    TopicFinanceSynced     = "finance.synced"
    TopicScheduleReordered = "schedule.reordered"
    TopicScheduleChanged   = "schedule.changed"

    // AllTopics subscribes to every event.
    AllTopics = "*"
)

// Event is one notification.  Payload is kept as raw JSON so it can be
// forwarded to clients untouched.
type Event struct {
    Topic   string          `json:"topic"`
    Payload json.RawMessage `json:"payload,omitempty"`
    At      time.Time       `json:"at"`
}

// NewEvent marshals payload into an event stamped with the current time.
func NewEvent(topic string, payload any) (Event, error) {
    ev := Event{Topic: topic, At: time.Now().UTC()}
    if payload == nil {
        return ev, nil
    }
    b, err := json.Marshal(payload)
    if err != nil {
        return Event{}, err
    }
    ev.Payload = b
    return ev, nil
}

type subscriber struct {
    id    uint64
    topic string
    fn    func(Event)
}

// Hub fans events out to subscribers.  The zero value is not usable; call
// NewHub.
type Hub struct {
    mu     sync.RWMutex
    nextID uint64
    subs   []subscriber
    log    *logrus.Logger
}

// NewHub returns an empty hub.  log may be nil.
func NewHub(log *logrus.Logger) *Hub {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Hub{log: log}
}

// Subscribe registers fn for topic (or AllTopics) and returns a function
// that removes the subscription.  Calling it more than once is harmless.
func (h *Hub) Subscribe(topic string, fn func(Event)) (unsubscribe func()) {
    h.mu.Lock()
    h.nextID++
    id := h.nextID
    h.subs = append(h.subs, subscriber{id: id, topic: topic, fn: fn})
    h.mu.Unlock()

    var once sync.Once
    return func() {
        once.Do(func() {
            h.mu.Lock()
            defer h.mu.Unlock()
            for i, s := range h.subs {
                if s.id == id {
                    h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
                    return
                }
            }
        })
    }
}

// Publish delivers ev to every matching subscriber.  A panicking subscriber
// is logged and skipped; the others still receive the event.
func (h *Hub) Publish(ev Event) {
    if ev.At.IsZero() {
        ev.At = time.Now().UTC()
    }
    h.mu.RLock()
    targets := make([]subscriber, 0, len(h.subs))
    for _, s := range h.subs {
        if s.topic == ev.Topic || s.topic == AllTopics {
            targets = append(targets, s)
        }
    }
    h.mu.RUnlock()

    for _, s := range targets {
        h.deliver(s, ev)
    }
}

// PublishJSON builds an event from payload and publishes it.
func (h *Hub) PublishJSON(topic string, payload any) error {
    ev, err := NewEvent(topic, payload)
    if err != nil {
        return err
    }
    h.Publish(ev)
    return nil
}

func (h *Hub) deliver(s subscriber, ev Event) {
    defer func() {
        if r := recover(); r != nil {
            h.log.WithFields(logrus.Fields{
                "module": "realtime",
                "topic":  ev.Topic,
                "panic":  r,
            }).Error("subscriber panicked")
        }
    }()
    s.fn(ev)
}

// Len reports the number of active subscriptions.
func (h *Hub) Len() int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.subs)
}
