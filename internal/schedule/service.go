package schedule

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/bsm/redislock"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/queue"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// ErrBusy means another reorder of the same day holds the lock.
var ErrBusy = errors.New("day is being reordered")

// SessionStore is the persistence the reorder needs.
type SessionStore interface {
    ListByDay(ctx context.Context, dayID string, publishedOnly bool) ([]model.ScheduleSession, error)
    ApplyRanks(ctx context.Context, dayID string, ranks []model.Rank) error
}

// EventPublisher forwards events to the broker.
type EventPublisher interface {
    Publish(ctx context.Context, routingKey string, event any) error
}

// Service applies reorders to stored sessions.  Concurrent reorders of one
// day are serialised through a Redis lock, and all changed ranks of one
// reorder are written in a single transaction by the store.
type Service struct {
    Sessions SessionStore
    Locker   *redislock.Client // nil disables locking
    LockTTL  time.Duration
    Retry    redislock.RetryStrategy
    Events   EventPublisher // optional
    Hub      *realtime.Hub  // optional
    Log      *logrus.Logger
}

func lockKey(dayID string) string { return "schedule:day:" + dayID + ":order" }

// withDayLock runs fn while holding the day's lock.
func (s *Service) withDayLock(ctx context.Context, dayID string, fn func() error) error {
    if s.Locker == nil {
        return fn()
    }
    ttl := s.LockTTL
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    retry := s.Retry
    if retry == nil {
        retry = redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 30)
    }
    lock, err := s.Locker.Obtain(ctx, lockKey(dayID), ttl, &redislock.Options{RetryStrategy: retry})
    if err != nil {
        if errors.Is(err, redislock.ErrNotObtained) {
            return ErrBusy
        }
        return fmt.Errorf("obtain day lock: %w", err)
    }
    defer func() {
        // a fresh context so a cancelled request still frees the lock
        rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
            s.logger().WithError(err).WithField("day_id", dayID).Warn("release day lock")
        }
    }()
    return fn()
}

// Reorder stores ordered as the new session order of dayID and returns the
// day's sessions read back by rank.  ordered must list every session of the
// day exactly once.
func (s *Service) Reorder(ctx context.Context, dayID string, ordered []string) ([]model.ScheduleSession, error) {
    var out []model.ScheduleSession
    err := s.withDayLock(ctx, dayID, func() error {
        current, err := s.Sessions.ListByDay(ctx, dayID, false)
        if err != nil {
            return err
        }
        if err := ValidateOrder(current, ordered); err != nil {
            return err
        }
        out, err = s.apply(ctx, dayID, current, ordered)
        return err
    })
    return out, err
}

// MoveSession moves the session at position from to position to, the
// drag-and-drop gesture, and stores the result like Reorder.
func (s *Service) MoveSession(ctx context.Context, dayID string, from, to int) ([]model.ScheduleSession, error) {
    var out []model.ScheduleSession
    err := s.withDayLock(ctx, dayID, func() error {
        current, err := s.Sessions.ListByDay(ctx, dayID, false)
        if err != nil {
            return err
        }
        next, err := Move(IDs(current), from, to)
        if err != nil {
            return err
        }
        out, err = s.apply(ctx, dayID, current, next)
        return err
    })
    return out, err
}

func (s *Service) apply(ctx context.Context, dayID string, current []model.ScheduleSession, next []string) ([]model.ScheduleSession, error) {
    changed := Diff(current, next)
    if len(changed) == 0 {
        return current, nil
    }
    if err := s.Sessions.ApplyRanks(ctx, dayID, changed); err != nil {
        return nil, fmt.Errorf("apply ranks: %w", err)
    }
    out, err := s.Sessions.ListByDay(ctx, dayID, false)
    if err != nil {
        return nil, err
    }
    s.announce(ctx, queue.ScheduleReorderedEvent{
        DayID:       dayID,
        SessionIDs:  IDs(out),
        Changed:     len(changed),
        ReorderedAt: time.Now().UTC().Format(time.RFC3339),
    })
    return out, nil
}

// announce notifies in-process subscribers and the broker.  Failures are
// logged only; the reorder itself is already committed.
func (s *Service) announce(ctx context.Context, ev queue.ScheduleReorderedEvent) {
    if s.Hub != nil {
        if err := s.Hub.PublishJSON(realtime.TopicScheduleReordered, ev); err != nil {
            s.logger().WithError(err).Warn("notify reorder")
        }
    }
    if s.Events != nil {
        if err := s.Events.Publish(ctx, queue.ScheduleReorderedQueue, ev); err != nil {
            s.logger().WithError(err).WithField("day_id", ev.DayID).Warn("publish reorder")
        }
    }
}

func (s *Service) logger() *logrus.Entry {
    l := s.Log
    if l == nil {
        l = logrus.StandardLogger()
    }
    return l.WithField("module", "schedule")
}
