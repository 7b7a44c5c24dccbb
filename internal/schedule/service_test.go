package schedule

import (
    "context"
    "errors"
    "sort"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/bsm/redislock"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/queue"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// memStore keeps sessions in memory and applies ranks all-or-nothing.
type memStore struct {
    byID    map[string]*model.ScheduleSession
    applied [][]model.Rank
    fail    error
}

func newMemStore(ids ...string) *memStore {
    m := &memStore{byID: map[string]*model.ScheduleSession{}}
    for i, s := range sessions(ids...) {
        s := s
        s.OrderInDay = i
        m.byID[s.ID] = &s
    }
    return m
}

func (m *memStore) ListByDay(_ context.Context, dayID string, _ bool) ([]model.ScheduleSession, error) {
    out := []model.ScheduleSession{}
    for _, s := range m.byID {
        if s.DayID == dayID {
            out = append(out, *s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].OrderInDay < out[j].OrderInDay })
    return out, nil
}

func (m *memStore) ApplyRanks(_ context.Context, _ string, ranks []model.Rank) error {
    if m.fail != nil {
        return m.fail
    }
    m.applied = append(m.applied, ranks)
    for _, r := range ranks {
        m.byID[r.SessionID].OrderInDay = r.OrderInDay
    }
    return nil
}

type recPublisher struct{ keys []string }

func (p *recPublisher) Publish(_ context.Context, key string, _ any) error {
    p.keys = append(p.keys, key)
    return nil
}

func newLocker(t *testing.T) (*redislock.Client, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { rdb.Close() })
    return redislock.New(rdb), rdb
}

func TestReorderMovesCToFront(t *testing.T) {
    store := newMemStore("A", "B", "C")
    pub := &recPublisher{}
    hub := realtime.NewHub(nil)
    var events int
    hub.Subscribe(realtime.TopicScheduleReordered, func(realtime.Event) { events++ })
    locker, _ := newLocker(t)

    svc := &Service{Sessions: store, Locker: locker, Events: pub, Hub: hub}
    got, err := svc.Reorder(context.Background(), "d1", []string{"C", "A", "B"})
    require.NoError(t, err)

    require.Equal(t, []string{"C", "A", "B"}, IDs(got))
    for i, s := range got {
        require.Equal(t, i, s.OrderInDay)
    }
    require.Len(t, store.applied, 1, "one batch per reorder")
    require.Equal(t, []string{queue.ScheduleReorderedQueue}, pub.keys)
    require.Equal(t, 1, events)
}

func TestMoveSessionMatchesRequestedPermutation(t *testing.T) {
    store := newMemStore("A", "B", "C", "D", "E")
    svc := &Service{Sessions: store}

    got, err := svc.MoveSession(context.Background(), "d1", 1, 3)
    require.NoError(t, err)
    require.Equal(t, []string{"A", "C", "D", "B", "E"}, IDs(got))
    for i, s := range got {
        require.Equal(t, i, s.OrderInDay)
    }
}

func TestReorderUnchangedWritesNothing(t *testing.T) {
    store := newMemStore("A", "B")
    pub := &recPublisher{}
    svc := &Service{Sessions: store, Events: pub}

    got, err := svc.Reorder(context.Background(), "d1", []string{"A", "B"})
    require.NoError(t, err)
    require.Len(t, got, 2)
    require.Empty(t, store.applied)
    require.Empty(t, pub.keys)
}

func TestReorderRejectsForeignSession(t *testing.T) {
    store := newMemStore("A", "B")
    svc := &Service{Sessions: store}

    _, err := svc.Reorder(context.Background(), "d1", []string{"B", "Z"})
    require.ErrorIs(t, err, ErrCrossDay)
    require.Empty(t, store.applied)
}

func TestReorderReportsStoreFailure(t *testing.T) {
    boom := errors.New("tx aborted")
    store := newMemStore("A", "B")
    store.fail = boom
    svc := &Service{Sessions: store}

    _, err := svc.Reorder(context.Background(), "d1", []string{"B", "A"})
    require.ErrorIs(t, err, boom)
}

func TestReorderBusyWhenDayLocked(t *testing.T) {
    store := newMemStore("A", "B")
    locker, _ := newLocker(t)

    held, err := locker.Obtain(context.Background(), lockKey("d1"), time.Minute, nil)
    require.NoError(t, err)
    defer held.Release(context.Background())

    svc := &Service{Sessions: store, Locker: locker, Retry: redislock.NoRetry()}
    _, err = svc.Reorder(context.Background(), "d1", []string{"B", "A"})
    require.ErrorIs(t, err, ErrBusy)
    require.Empty(t, store.applied)
}

func TestReorderReleasesLock(t *testing.T) {
    store := newMemStore("A", "B")
    locker, rdb := newLocker(t)
    svc := &Service{Sessions: store, Locker: locker}

    _, err := svc.Reorder(context.Background(), "d1", []string{"B", "A"})
    require.NoError(t, err)

    n, err := rdb.Exists(context.Background(), lockKey("d1")).Result()
    require.NoError(t, err)
    require.Zero(t, n)
}
