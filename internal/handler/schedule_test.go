package handler

import (
    "bufio"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "slices"
    "sort"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/realtime"
    "github.com/iliyamo/civeni-admin/internal/repository"
    "github.com/iliyamo/civeni-admin/internal/schedule"
)

// memSchedule keeps days and sessions in memory with the same rank rules as
// the MySQL store: ranks of a day are always 0..n-1.
type memSchedule struct {
    mu       sync.Mutex
    seq      int
    days     map[string]*model.ScheduleDay
    sessions map[string]*model.ScheduleSession
}

func newMemSchedule() *memSchedule {
    return &memSchedule{days: map[string]*model.ScheduleDay{}, sessions: map[string]*model.ScheduleSession{}}
}

func (m *memSchedule) id(prefix string) string {
    m.seq++
    return fmt.Sprintf("%s%d", prefix, m.seq)
}

type memDays struct{ *memSchedule }

func (m memDays) Create(_ context.Context, d *model.ScheduleDay) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, o := range m.days {
        if o.EventSlug == d.EventSlug && o.Date == d.Date {
            return repository.ErrConflict
        }
    }
    d.ID = m.id("d")
    cp := *d
    m.days[d.ID] = &cp
    return nil
}

func (m memDays) Get(_ context.Context, id string) (*model.ScheduleDay, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    d, ok := m.days[id]
    if !ok {
        return nil, repository.ErrDayNotFound
    }
    cp := *d
    return &cp, nil
}

func (m memDays) List(_ context.Context, slug string, publishedOnly bool) ([]model.ScheduleDay, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.ScheduleDay{}
    for _, d := range m.days {
        if (slug == "" || d.EventSlug == slug) && (!publishedOnly || d.IsPublished) {
            out = append(out, *d)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].SortOrder != out[j].SortOrder {
            return out[i].SortOrder < out[j].SortOrder
        }
        return out[i].Date < out[j].Date
    })
    return out, nil
}

func (m memDays) Update(_ context.Context, d *model.ScheduleDay) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.days[d.ID]; !ok {
        return repository.ErrDayNotFound
    }
    cp := *d
    m.days[d.ID] = &cp
    return nil
}

func (m memDays) SetPublished(_ context.Context, id string, published bool) (*model.ScheduleDay, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    d, ok := m.days[id]
    if !ok {
        return nil, repository.ErrDayNotFound
    }
    d.IsPublished = published
    cp := *d
    return &cp, nil
}

func (m memDays) Delete(_ context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.days[id]; !ok {
        return repository.ErrDayNotFound
    }
    delete(m.days, id)
    for sid, s := range m.sessions {
        if s.DayID == id {
            delete(m.sessions, sid)
        }
    }
    return nil
}

type memSessions struct{ *memSchedule }

func (m memSessions) byDay(dayID string) []*model.ScheduleSession {
    var out []*model.ScheduleSession
    for _, s := range m.sessions {
        if s.DayID == dayID {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].OrderInDay < out[j].OrderInDay })
    return out
}

func (m memSessions) renumber(dayID string) {
    for i, s := range m.byDay(dayID) {
        s.OrderInDay = i
    }
}

func (m memSessions) Get(_ context.Context, id string) (*model.ScheduleSession, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    cp := *s
    return &cp, nil
}

func (m memSessions) ListByDay(_ context.Context, dayID string, publishedOnly bool) ([]model.ScheduleSession, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.ScheduleSession{}
    for _, s := range m.byDay(dayID) {
        if !publishedOnly || s.IsPublished {
            out = append(out, *s)
        }
    }
    return out, nil
}

func (m memSessions) Create(_ context.Context, s *model.ScheduleSession) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.days[s.DayID]; !ok {
        return repository.ErrDayNotFound
    }
    s.ID = m.id("s")
    s.OrderInDay = len(m.byDay(s.DayID))
    cp := *s
    m.sessions[s.ID] = &cp
    return nil
}

func (m memSessions) Update(_ context.Context, s *model.ScheduleSession) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    cur, ok := m.sessions[s.ID]
    if !ok {
        return repository.ErrSessionNotFound
    }
    if _, ok := m.days[s.DayID]; !ok {
        return repository.ErrDayNotFound
    }
    from := cur.DayID
    if from != s.DayID {
        s.OrderInDay = len(m.byDay(s.DayID))
    }
    cp := *s
    m.sessions[s.ID] = &cp
    if from != s.DayID {
        m.renumber(from)
    }
    return nil
}

func (m memSessions) SetPublished(_ context.Context, id string, published bool) (*model.ScheduleSession, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    s.IsPublished = published
    cp := *s
    return &cp, nil
}

func (m memSessions) Delete(_ context.Context, id string) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return "", repository.ErrSessionNotFound
    }
    delete(m.sessions, id)
    m.renumber(s.DayID)
    return s.DayID, nil
}

func (m memSessions) ApplyRanks(_ context.Context, _ string, ranks []model.Rank) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, r := range ranks {
        m.sessions[r.SessionID].OrderInDay = r.OrderInDay
    }
    return nil
}

type scheduleEnv struct {
    e      *echo.Echo
    store  *memSchedule
    events *[]realtime.Event
}

func scheduleFixture(t *testing.T) scheduleEnv {
    t.Helper()
    store := newMemSchedule()
    hub := realtime.NewHub(quietLogger())
    var events []realtime.Event
    hub.Subscribe(realtime.AllTopics, func(ev realtime.Event) { events = append(events, ev) })

    sessions := memSessions{store}
    h := &ScheduleHandler{
        Days:     memDays{store},
        Sessions: sessions,
        Reorder:  &schedule.Service{Sessions: sessions, Hub: hub, Log: quietLogger()},
        Slug: func(kind string) string {
            if kind == "online" {
                return "civeni-online"
            }
            return "civeni"
        },
        Hub: hub,
        Log: quietLogger(),
    }
    e := echo.New()
    e.GET("/v1/public/schedule", h.PublicSchedule)
    g := e.Group("/v1/admin/schedule")
    g.GET("/days", h.ListDays)
    g.POST("/days", h.CreateDay)
    g.GET("/days/:id", h.GetDay)
    g.PUT("/days/:id", h.UpdateDay)
    g.PATCH("/days/:id", h.UpdateDay)
    g.DELETE("/days/:id", h.DeleteDay)
    g.POST("/days/:id/publish", h.PublishDay)
    g.GET("/days/:id/sessions", h.ListSessions)
    g.POST("/days/:id/sessions", h.CreateSession)
    g.PUT("/days/:id/order", h.SetOrder)
    g.POST("/days/:id/move", h.MoveSession)
    g.PUT("/sessions/:id", h.UpdateSession)
    g.PATCH("/sessions/:id", h.UpdateSession)
    g.DELETE("/sessions/:id", h.DeleteSession)
    g.POST("/sessions/:id/publish", h.PublishSession)
    return scheduleEnv{e: e, store: store, events: &events}
}

func (env scheduleEnv) createDay(t *testing.T, body string) model.ScheduleDay {
    t.Helper()
    rec := send(env.e, http.MethodPost, "/v1/admin/schedule/days", body)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var d model.ScheduleDay
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
    return d
}

func (env scheduleEnv) createSession(t *testing.T, dayID, title string) model.ScheduleSession {
    t.Helper()
    body := fmt.Sprintf(`{"session_type":"palestra","title":%q,"start_at":"2025-12-11T09:00:00-03:00"}`, title)
    rec := send(env.e, http.MethodPost, "/v1/admin/schedule/days/"+dayID+"/sessions", body)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var s model.ScheduleSession
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
    return s
}

func (env scheduleEnv) order(t *testing.T, dayID string) []string {
    t.Helper()
    rec := send(env.e, http.MethodGet, "/v1/admin/schedule/days/"+dayID+"/sessions", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var ss []model.ScheduleSession
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ss))
    titles := make([]string, len(ss))
    for i, s := range ss {
        require.Equal(t, i, s.OrderInDay)
        titles[i] = s.Title
    }
    return titles
}

const dayBody = `{"event_slug":"civeni","date":"2025-12-11","weekday_label":"Quinta-feira","modality":"presencial"}`

func TestCreateDayValidation(t *testing.T) {
    env := scheduleFixture(t)

    rec := send(env.e, http.MethodPost, "/v1/admin/schedule/days", `{"date":"11/12/2025","modality":"radio","sort_order":-1}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    require.Equal(t, map[string]any{
        "event_slug": "required",
        "date":       "datetime",
        "modality":   "oneof",
        "sort_order": "gte",
    }, decode(t, rec)["fields"])

    d := env.createDay(t, dayBody)
    require.NotEmpty(t, d.ID)
    require.Equal(t, "Quinta-feira", d.WeekdayLabel)

    require.Equal(t, http.StatusConflict, send(env.e, http.MethodPost, "/v1/admin/schedule/days", dayBody).Code)
    require.NotEmpty(t, *env.events)
    require.Equal(t, realtime.TopicScheduleChanged, (*env.events)[0].Topic)
}

func TestUpdateDayPutAndPatch(t *testing.T) {
    env := scheduleFixture(t)
    d := env.createDay(t, dayBody)
    path := "/v1/admin/schedule/days/" + d.ID

    rec := send(env.e, http.MethodPatch, path, `{"headline":"Abertura oficial"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    body := decode(t, rec)
    require.Equal(t, "Abertura oficial", body["headline"])
    require.Equal(t, "2025-12-11", body["date"])
    require.Equal(t, "Quinta-feira", body["weekday_label"])

    // patched result is validated as a whole
    rec = send(env.e, http.MethodPatch, path, `{"modality":"tv"}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

    // PUT replaces every field
    rec = send(env.e, http.MethodPut, path, `{"event_slug":"civeni","date":"2025-12-12","modality":"online"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    body = decode(t, rec)
    require.Equal(t, "2025-12-12", body["date"])
    require.Equal(t, "", body["weekday_label"])

    require.Equal(t, http.StatusNotFound, send(env.e, http.MethodPatch, "/v1/admin/schedule/days/missing", `{}`).Code)
}

func TestDeleteRequiresConfirm(t *testing.T) {
    env := scheduleFixture(t)
    d := env.createDay(t, dayBody)
    s := env.createSession(t, d.ID, "Palestra 1")

    rec := send(env.e, http.MethodDelete, "/v1/admin/schedule/sessions/"+s.ID, "")
    require.Equal(t, http.StatusPreconditionRequired, rec.Code)
    require.Equal(t, http.StatusNoContent, send(env.e, http.MethodDelete, "/v1/admin/schedule/sessions/"+s.ID+"?confirm=true", "").Code)
    require.Equal(t, http.StatusNotFound, send(env.e, http.MethodDelete, "/v1/admin/schedule/sessions/"+s.ID+"?confirm=true", "").Code)

    require.Equal(t, http.StatusPreconditionRequired, send(env.e, http.MethodDelete, "/v1/admin/schedule/days/"+d.ID, "").Code)
    require.Equal(t, http.StatusNoContent, send(env.e, http.MethodDelete, "/v1/admin/schedule/days/"+d.ID+"?confirm=1", "").Code)
    require.Equal(t, http.StatusNotFound, send(env.e, http.MethodGet, "/v1/admin/schedule/days/"+d.ID, "").Code)
}

func TestCreateSessionValidation(t *testing.T) {
    env := scheduleFixture(t)
    d := env.createDay(t, dayBody)
    path := "/v1/admin/schedule/days/" + d.ID + "/sessions"

    rec := send(env.e, http.MethodPost, path, `{"session_type":"karaoke","livestream_url":"not a url"}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    require.Equal(t, map[string]any{
        "session_type":   "session_type",
        "title":          "required",
        "start_at":       "required",
        "livestream_url": "url",
    }, decode(t, rec)["fields"])

    rec = send(env.e, http.MethodPost, path,
        `{"session_type":"painel","title":"Painel","start_at":"2025-12-11T10:00:00Z","end_at":"2025-12-11T09:00:00Z"}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    require.Equal(t, map[string]any{"end_at": "gtfield"}, decode(t, rec)["fields"])

    require.Equal(t, http.StatusNotFound, send(env.e, http.MethodPost, "/v1/admin/schedule/days/missing/sessions",
        `{"session_type":"painel","title":"Painel","start_at":"2025-12-11T10:00:00Z"}`).Code)

    a := env.createSession(t, d.ID, "A")
    b := env.createSession(t, d.ID, "B")
    require.Equal(t, 0, a.OrderInDay)
    require.Equal(t, 1, b.OrderInDay)
    require.True(t, a.StartAt.Equal(time.Date(2025, 12, 11, 12, 0, 0, 0, time.UTC)), a.StartAt)
}

func TestSessionMovesToAnotherDay(t *testing.T) {
    env := scheduleFixture(t)
    d1 := env.createDay(t, dayBody)
    d2 := env.createDay(t, `{"event_slug":"civeni","date":"2025-12-12","modality":"presencial"}`)
    env.createSession(t, d1.ID, "A")
    b := env.createSession(t, d1.ID, "B")
    env.createSession(t, d1.ID, "C")
    env.createSession(t, d2.ID, "X")

    rec := send(env.e, http.MethodPatch, "/v1/admin/schedule/sessions/"+b.ID, `{"day_id":"`+d2.ID+`"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    require.Equal(t, []string{"A", "C"}, env.order(t, d1.ID))
    require.Equal(t, []string{"X", "B"}, env.order(t, d2.ID))
}

func TestSetOrderAndMove(t *testing.T) {
    env := scheduleFixture(t)
    d := env.createDay(t, dayBody)
    a := env.createSession(t, d.ID, "A")
    b := env.createSession(t, d.ID, "B")
    c := env.createSession(t, d.ID, "C")
    orderPath := "/v1/admin/schedule/days/" + d.ID + "/order"
    movePath := "/v1/admin/schedule/days/" + d.ID + "/move"

    rec := send(env.e, http.MethodPut, orderPath, fmt.Sprintf(`{"session_ids":[%q,%q,%q]}`, c.ID, a.ID, b.ID))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    require.Equal(t, []string{"C", "A", "B"}, env.order(t, d.ID))

    // an incomplete order is rejected and nothing changes
    rec = send(env.e, http.MethodPut, orderPath, fmt.Sprintf(`{"session_ids":[%q,%q]}`, a.ID, b.ID))
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    require.Equal(t, []string{"C", "A", "B"}, env.order(t, d.ID))

    require.Equal(t, http.StatusUnprocessableEntity, send(env.e, http.MethodPut, orderPath, `{"session_ids":[]}`).Code)

    rec = send(env.e, http.MethodPost, movePath, `{"from":0,"to":2}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    require.Equal(t, []string{"A", "B", "C"}, env.order(t, d.ID))

    rec = send(env.e, http.MethodPost, movePath, `{"from":0}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    require.Equal(t, map[string]any{"to": "required"}, decode(t, rec)["fields"])

    require.Equal(t, http.StatusUnprocessableEntity, send(env.e, http.MethodPost, movePath, `{"from":0,"to":3}`).Code)
    require.Equal(t, http.StatusNotFound, send(env.e, http.MethodPost, "/v1/admin/schedule/days/missing/move", `{"from":0,"to":1}`).Code)

    var reordered int
    for _, ev := range *env.events {
        if ev.Topic == realtime.TopicScheduleReordered {
            reordered++
        }
    }
    require.Equal(t, 2, reordered)
}

func TestPublicScheduleShowsPublishedOnly(t *testing.T) {
    env := scheduleFixture(t)
    d1 := env.createDay(t, `{"event_slug":"civeni","date":"2025-12-11","modality":"presencial","sort_order":0}`)
    d2 := env.createDay(t, `{"event_slug":"civeni","date":"2025-12-12","modality":"presencial","sort_order":1}`)
    online := env.createDay(t, `{"event_slug":"civeni-online","date":"2025-12-11","modality":"online"}`)
    a := env.createSession(t, d1.ID, "A")
    env.createSession(t, d1.ID, "Draft")
    c := env.createSession(t, d1.ID, "C")

    for _, id := range []string{d1.ID, online.ID} {
        require.Equal(t, http.StatusOK, send(env.e, http.MethodPost, "/v1/admin/schedule/days/"+id+"/publish", "").Code)
    }
    for _, id := range []string{a.ID, c.ID} {
        require.Equal(t, http.StatusOK, send(env.e, http.MethodPost, "/v1/admin/schedule/sessions/"+id+"/publish", `{"published":true}`).Code)
    }
    rec := send(env.e, http.MethodPost, "/v1/admin/schedule/days/"+d2.ID+"/publish", `{"published":false}`)
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, false, decode(t, rec)["is_published"])

    rec = send(env.e, http.MethodGet, "/v1/public/schedule?type=presencial", "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var days []model.DayProgramme
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
    require.Len(t, days, 1)
    require.Equal(t, d1.ID, days[0].ID)
    require.Len(t, days[0].Sessions, 2)
    require.Equal(t, "A", days[0].Sessions[0].Title)
    require.Equal(t, "C", days[0].Sessions[1].Title)

    rec = send(env.e, http.MethodGet, "/v1/public/schedule?type=online", "")
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
    require.Len(t, days, 1)
    require.Empty(t, days[0].Sessions)

    require.Equal(t, http.StatusBadRequest, send(env.e, http.MethodGet, "/v1/public/schedule?type=radio", "").Code)
}

func TestListDaysByType(t *testing.T) {
    env := scheduleFixture(t)
    env.createDay(t, dayBody)
    env.createDay(t, `{"event_slug":"civeni-online","date":"2025-12-11","modality":"online"}`)

    rec := send(env.e, http.MethodGet, "/v1/admin/schedule/days?type=online", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var days []model.ScheduleDay
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
    require.Len(t, days, 1)
    require.Equal(t, "civeni-online", days[0].EventSlug)

    rec = send(env.e, http.MethodGet, "/v1/admin/schedule/days", "")
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
    require.Len(t, days, 2)
}

func TestStreamForwardsHubEvents(t *testing.T) {
    hub := realtime.NewHub(quietLogger())
    h := &StreamHandler{Hub: hub, Heartbeat: time.Hour, Log: quietLogger()}
    e := echo.New()
    e.GET("/stream", h.Stream)
    srv := httptest.NewServer(e)
    defer srv.Close()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream?topics="+realtime.TopicFinanceSynced, nil)
    require.NoError(t, err)
    resp, err := http.DefaultClient.Do(req)
    require.NoError(t, err)
    defer resp.Body.Close()
    require.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

    require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
    require.NoError(t, hub.PublishJSON(realtime.TopicScheduleChanged, map[string]string{"ignored": "yes"}))
    require.NoError(t, hub.PublishJSON(realtime.TopicFinanceSynced, map[string]int{"charges": 3}))

    sc := bufio.NewScanner(resp.Body)
    var lines []string
    for sc.Scan() {
        lines = append(lines, sc.Text())
        if strings.HasPrefix(sc.Text(), "data: ") {
            break
        }
    }
    require.Contains(t, lines, ": connected")
    require.Contains(t, lines, "event: "+realtime.TopicFinanceSynced)
    require.Equal(t, `data: {"charges":3}`, lines[len(lines)-1])
    require.False(t, slices.Contains(lines, "event: "+realtime.TopicScheduleChanged))

    cancel()
    require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamWithoutHub(t *testing.T) {
    e := echo.New()
    e.GET("/stream", (&StreamHandler{}).Stream)
    require.Equal(t, http.StatusServiceUnavailable, send(e, http.MethodGet, "/stream", "").Code)
}
