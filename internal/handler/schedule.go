package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// DayStore is the persistence of schedule days.
type DayStore interface {
    Create(ctx context.Context, d *model.ScheduleDay) error
    Get(ctx context.Context, id string) (*model.ScheduleDay, error)
    List(ctx context.Context, eventSlug string, publishedOnly bool) ([]model.ScheduleDay, error)
    Update(ctx context.Context, d *model.ScheduleDay) error
    SetPublished(ctx context.Context, id string, published bool) (*model.ScheduleDay, error)
    Delete(ctx context.Context, id string) error
}

// SessionStore is the persistence of schedule sessions.
type SessionStore interface {
    Get(ctx context.Context, id string) (*model.ScheduleSession, error)
    ListByDay(ctx context.Context, dayID string, publishedOnly bool) ([]model.ScheduleSession, error)
    Create(ctx context.Context, s *model.ScheduleSession) error
    Update(ctx context.Context, s *model.ScheduleSession) error
    SetPublished(ctx context.Context, id string, published bool) (*model.ScheduleSession, error)
    Delete(ctx context.Context, id string) (string, error)
}

// Reorderer re-ranks the sessions of a day.
type Reorderer interface {
    Reorder(ctx context.Context, dayID string, ordered []string) ([]model.ScheduleSession, error)
    MoveSession(ctx context.Context, dayID string, from, to int) ([]model.ScheduleSession, error)
}

// SlugResolver maps the programme type (presencial|online) to its slug.
type SlugResolver func(kind string) string

// ScheduleHandler serves the admin CRUD of the conference programme.
type ScheduleHandler struct {
    Days     DayStore
    Sessions SessionStore
    Reorder  Reorderer
    Slug     SlugResolver
    Hub      *realtime.Hub
    Log      *logrus.Logger
}

// ----- DTOs -----

type dayReq struct {
    EventSlug      string `json:"event_slug" validate:"required,max=100"`
    Date           string `json:"date" validate:"required,datetime=2006-01-02"`
    WeekdayLabel   string `json:"weekday_label" validate:"max=30"`
    Headline       string `json:"headline" validate:"max=200"`
    Theme          string `json:"theme" validate:"max=200"`
    Location       string `json:"location" validate:"max=200"`
    Modality       string `json:"modality" validate:"required,oneof=presencial online hibrido"`
    SortOrder      int    `json:"sort_order" validate:"gte=0"`
    IsPublished    bool   `json:"is_published"`
    SeoTitle       string `json:"seo_title" validate:"max=200"`
    SeoDescription string `json:"seo_description" validate:"max=500"`
    Slug           string `json:"slug" validate:"max=120"`
}

// dayPatch carries only the fields present in a PATCH body.
type dayPatch struct {
    EventSlug      *string `json:"event_slug"`
    Date           *string `json:"date"`
    WeekdayLabel   *string `json:"weekday_label"`
    Headline       *string `json:"headline"`
    Theme          *string `json:"theme"`
    Location       *string `json:"location"`
    Modality       *string `json:"modality"`
    SortOrder      *int    `json:"sort_order"`
    IsPublished    *bool   `json:"is_published"`
    SeoTitle       *string `json:"seo_title"`
    SeoDescription *string `json:"seo_description"`
    Slug           *string `json:"slug"`
}

func dayReqFrom(d model.ScheduleDay) dayReq {
    return dayReq{
        EventSlug: d.EventSlug, Date: d.Date, WeekdayLabel: d.WeekdayLabel, Headline: d.Headline,
        Theme: d.Theme, Location: d.Location, Modality: d.Modality, SortOrder: d.SortOrder,
        IsPublished: d.IsPublished, SeoTitle: d.SeoTitle, SeoDescription: d.SeoDescription, Slug: d.Slug,
    }
}

func (r dayReq) apply(d *model.ScheduleDay) {
    d.EventSlug = strings.TrimSpace(r.EventSlug)
    d.Date = r.Date
    d.WeekdayLabel = strings.TrimSpace(r.WeekdayLabel)
    d.Headline = strings.TrimSpace(r.Headline)
    d.Theme = strings.TrimSpace(r.Theme)
    d.Location = strings.TrimSpace(r.Location)
    d.Modality = r.Modality
    d.SortOrder = r.SortOrder
    d.IsPublished = r.IsPublished
    d.SeoTitle = strings.TrimSpace(r.SeoTitle)
    d.SeoDescription = strings.TrimSpace(r.SeoDescription)
    d.Slug = strings.TrimSpace(r.Slug)
}

func (p dayPatch) merge(r *dayReq) {
    set := func(dst *string, src *string) {
        if src != nil {
            *dst = *src
        }
    }
    set(&r.EventSlug, p.EventSlug)
    set(&r.Date, p.Date)
    set(&r.WeekdayLabel, p.WeekdayLabel)
    set(&r.Headline, p.Headline)
    set(&r.Theme, p.Theme)
    set(&r.Location, p.Location)
    set(&r.Modality, p.Modality)
    set(&r.SeoTitle, p.SeoTitle)
    set(&r.SeoDescription, p.SeoDescription)
    set(&r.Slug, p.Slug)
    if p.SortOrder != nil {
        r.SortOrder = *p.SortOrder
    }
    if p.IsPublished != nil {
        r.IsPublished = *p.IsPublished
    }
}

type sessionReq struct {
    DayID         string     `json:"day_id" validate:"omitempty,max=36"`
    SessionType   string     `json:"session_type" validate:"required,session_type"`
    Title         string     `json:"title" validate:"required,max=300"`
    Description   string     `json:"description" validate:"max=5000"`
    StartAt       time.Time  `json:"start_at" validate:"required"`
    EndAt         *time.Time `json:"end_at"`
    Room          string     `json:"room" validate:"max=100"`
    Modality      string     `json:"modality" validate:"omitempty,oneof=presencial online hibrido"`
    LivestreamURL string     `json:"livestream_url" validate:"omitempty,url"`
    MaterialsURL  string     `json:"materials_url" validate:"omitempty,url"`
    IsParallel    bool       `json:"is_parallel"`
    IsFeatured    bool       `json:"is_featured"`
    IsPublished   bool       `json:"is_published"`
}

type sessionPatch struct {
    DayID         *string    `json:"day_id"`
    SessionType   *string    `json:"session_type"`
    Title         *string    `json:"title"`
    Description   *string    `json:"description"`
    StartAt       *time.Time `json:"start_at"`
    EndAt         *time.Time `json:"end_at"`
    Room          *string    `json:"room"`
    Modality      *string    `json:"modality"`
    LivestreamURL *string    `json:"livestream_url"`
    MaterialsURL  *string    `json:"materials_url"`
    IsParallel    *bool      `json:"is_parallel"`
    IsFeatured    *bool      `json:"is_featured"`
    IsPublished   *bool      `json:"is_published"`
}

func sessionReqFrom(s model.ScheduleSession) sessionReq {
    return sessionReq{
        DayID: s.DayID, SessionType: s.SessionType, Title: s.Title, Description: s.Description,
        StartAt: s.StartAt, EndAt: s.EndAt, Room: s.Room, Modality: s.Modality,
        LivestreamURL: s.LivestreamURL, MaterialsURL: s.MaterialsURL,
        IsParallel: s.IsParallel, IsFeatured: s.IsFeatured, IsPublished: s.IsPublished,
    }
}

func (r sessionReq) apply(s *model.ScheduleSession) {
    if r.DayID != "" {
        s.DayID = r.DayID
    }
    s.SessionType = r.SessionType
    s.Title = strings.TrimSpace(r.Title)
    s.Description = strings.TrimSpace(r.Description)
    s.StartAt = r.StartAt.UTC()
    s.EndAt = nil
    if r.EndAt != nil {
        end := r.EndAt.UTC()
        s.EndAt = &end
    }
    s.Room = strings.TrimSpace(r.Room)
    s.Modality = r.Modality
    s.LivestreamURL = strings.TrimSpace(r.LivestreamURL)
    s.MaterialsURL = strings.TrimSpace(r.MaterialsURL)
    s.IsParallel = r.IsParallel
    s.IsFeatured = r.IsFeatured
    s.IsPublished = r.IsPublished
}

func (p sessionPatch) merge(r *sessionReq) {
    set := func(dst *string, src *string) {
        if src != nil {
            *dst = *src
        }
    }
    set(&r.DayID, p.DayID)
    set(&r.SessionType, p.SessionType)
    set(&r.Title, p.Title)
    set(&r.Description, p.Description)
    set(&r.Room, p.Room)
    set(&r.Modality, p.Modality)
    set(&r.LivestreamURL, p.LivestreamURL)
    set(&r.MaterialsURL, p.MaterialsURL)
    if p.StartAt != nil {
        r.StartAt = *p.StartAt
    }
    if p.EndAt != nil {
        r.EndAt = p.EndAt
    }
    if p.IsParallel != nil {
        r.IsParallel = *p.IsParallel
    }
    if p.IsFeatured != nil {
        r.IsFeatured = *p.IsFeatured
    }
    if p.IsPublished != nil {
        r.IsPublished = *p.IsPublished
    }
}

// checkSession validates r and the time range, writing the error response
// itself.  ok is false when a response was written.
func checkSession(c echo.Context, r sessionReq) (bool, error) {
    if err := validate.Struct(r); err != nil {
        return false, validationError(c, err)
    }
    if r.EndAt != nil && !r.EndAt.After(r.StartAt) {
        return false, c.JSON(http.StatusUnprocessableEntity, map[string]any{
            "error":  "validation failed",
            "fields": map[string]string{"end_at": "gtfield"},
        })
    }
    return true, nil
}

type publishReq struct {
    Published *bool `json:"published"`
}

func (r publishReq) value() bool { return r.Published == nil || *r.Published }

type orderReq struct {
    SessionIDs []string `json:"session_ids" validate:"required,dive,required"`
}

type moveReq struct {
    From *int `json:"from" validate:"required,gte=0"`
    To   *int `json:"to" validate:"required,gte=0"`
}

// changed tells subscribers that the programme of a day changed.
func (h *ScheduleHandler) changed(dayID, action string) {
    notify(h.Hub, h.Log, "changed", realtime.TopicScheduleChanged, map[string]string{"day_id": dayID, "action": action})
}

// ----- days -----

// ListDays lists days of one programme (?type=presencial|online or
// ?event_slug=...).  Without either every day is returned.
func (h *ScheduleHandler) ListDays(c echo.Context) error {
    slug := strings.TrimSpace(c.QueryParam("event_slug"))
    if slug == "" && c.QueryParam("type") != "" && h.Slug != nil {
        slug = h.Slug(c.QueryParam("type"))
    }
    days, err := h.Days.List(c.Request().Context(), slug, false)
    if err != nil {
        return respondError(c, h.Log, "ListDays", err)
    }
    return c.JSON(http.StatusOK, days)
}

// GetDay returns one day with all of its sessions by rank.
func (h *ScheduleHandler) GetDay(c echo.Context) error {
    ctx := c.Request().Context()
    d, err := h.Days.Get(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, "GetDay", err)
    }
    sessions, err := h.Sessions.ListByDay(ctx, d.ID, false)
    if err != nil {
        return respondError(c, h.Log, "GetDay", err)
    }
    return c.JSON(http.StatusOK, model.DayProgramme{ScheduleDay: *d, Sessions: sessions})
}

func (h *ScheduleHandler) CreateDay(c echo.Context) error {
    var req dayReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    var d model.ScheduleDay
    req.apply(&d)
    if err := h.Days.Create(c.Request().Context(), &d); err != nil {
        return respondError(c, h.Log, "CreateDay", err)
    }
    h.changed(d.ID, "day_created")
    return c.JSON(http.StatusCreated, d)
}

// UpdateDay serves both PUT (full body) and PATCH (only present fields).
func (h *ScheduleHandler) UpdateDay(c echo.Context) error {
    ctx := c.Request().Context()
    d, err := h.Days.Get(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, "UpdateDay", err)
    }
    var req dayReq
    if c.Request().Method == http.MethodPatch {
        var p dayPatch
        if err := c.Bind(&p); err != nil {
            return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
        }
        req = dayReqFrom(*d)
        p.merge(&req)
    } else if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    req.apply(d)
    if err := h.Days.Update(ctx, d); err != nil {
        return respondError(c, h.Log, "UpdateDay", err)
    }
    h.changed(d.ID, "day_updated")
    return c.JSON(http.StatusOK, d)
}

func (h *ScheduleHandler) PublishDay(c echo.Context) error {
    var req publishReq
    _ = c.Bind(&req) // empty body means publish
    d, err := h.Days.SetPublished(c.Request().Context(), c.Param("id"), req.value())
    if err != nil {
        return respondError(c, h.Log, "PublishDay", err)
    }
    h.changed(d.ID, "day_published")
    return c.JSON(http.StatusOK, d)
}

// DeleteDay removes a day and its sessions; it requires confirm=true.
func (h *ScheduleHandler) DeleteDay(c echo.Context) error {
    if !confirmed(c, false) {
        return respondError(c, h.Log, "DeleteDay", errConfirmationRequired)
    }
    id := c.Param("id")
    if err := h.Days.Delete(c.Request().Context(), id); err != nil {
        return respondError(c, h.Log, "DeleteDay", err)
    }
    h.changed(id, "day_deleted")
    return c.NoContent(http.StatusNoContent)
}

// ----- sessions -----

func (h *ScheduleHandler) ListSessions(c echo.Context) error {
    ctx := c.Request().Context()
    d, err := h.Days.Get(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, "ListSessions", err)
    }
    sessions, err := h.Sessions.ListByDay(ctx, d.ID, false)
    if err != nil {
        return respondError(c, h.Log, "ListSessions", err)
    }
    return c.JSON(http.StatusOK, sessions)
}

// CreateSession appends a session at the end of the day in the path.
func (h *ScheduleHandler) CreateSession(c echo.Context) error {
    var req sessionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    req.DayID = c.Param("id")
    if ok, err := checkSession(c, req); !ok {
        return err
    }
    var s model.ScheduleSession
    req.apply(&s)
    if err := h.Sessions.Create(c.Request().Context(), &s); err != nil {
        return respondError(c, h.Log, "CreateSession", err)
    }
    h.changed(s.DayID, "session_created")
    return c.JSON(http.StatusCreated, s)
}

// UpdateSession serves PUT and PATCH.  A different day_id moves the session
// to the end of that day.
func (h *ScheduleHandler) UpdateSession(c echo.Context) error {
    ctx := c.Request().Context()
    s, err := h.Sessions.Get(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, "UpdateSession", err)
    }
    fromDay := s.DayID
    var req sessionReq
    if c.Request().Method == http.MethodPatch {
        var p sessionPatch
        if err := c.Bind(&p); err != nil {
            return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
        }
        req = sessionReqFrom(*s)
        p.merge(&req)
    } else if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    if ok, err := checkSession(c, req); !ok {
        return err
    }
    req.apply(s)
    if err := h.Sessions.Update(ctx, s); err != nil {
        return respondError(c, h.Log, "UpdateSession", err)
    }
    h.changed(s.DayID, "session_updated")
    if s.DayID != fromDay {
        h.changed(fromDay, "session_moved_out")
    }
    return c.JSON(http.StatusOK, s)
}

func (h *ScheduleHandler) PublishSession(c echo.Context) error {
    var req publishReq
    _ = c.Bind(&req)
    s, err := h.Sessions.SetPublished(c.Request().Context(), c.Param("id"), req.value())
    if err != nil {
        return respondError(c, h.Log, "PublishSession", err)
    }
    h.changed(s.DayID, "session_published")
    return c.JSON(http.StatusOK, s)
}

// DeleteSession removes a session and closes the rank gap; it requires
// confirm=true.
func (h *ScheduleHandler) DeleteSession(c echo.Context) error {
    if !confirmed(c, false) {
        return respondError(c, h.Log, "DeleteSession", errConfirmationRequired)
    }
    dayID, err := h.Sessions.Delete(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, "DeleteSession", err)
    }
    h.changed(dayID, "session_deleted")
    return c.NoContent(http.StatusNoContent)
}

// ----- ordering -----

// SetOrder stores the complete new order of a day's sessions.
func (h *ScheduleHandler) SetOrder(c echo.Context) error {
    var req orderReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()
    dayID := c.Param("id")
    if _, err := h.Days.Get(ctx, dayID); err != nil {
        return respondError(c, h.Log, "SetOrder", err)
    }
    sessions, err := h.Reorder.Reorder(ctx, dayID, req.SessionIDs)
    if err != nil {
        return respondError(c, h.Log, "SetOrder", err)
    }
    return c.JSON(http.StatusOK, sessions)
}

// MoveSession moves the session at position from to position to.
func (h *ScheduleHandler) MoveSession(c echo.Context) error {
    var req moveReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()
    dayID := c.Param("id")
    if _, err := h.Days.Get(ctx, dayID); err != nil {
        return respondError(c, h.Log, "MoveSession", err)
    }
    sessions, err := h.Reorder.MoveSession(ctx, dayID, *req.From, *req.To)
    if err != nil {
        return respondError(c, h.Log, "MoveSession", err)
    }
    return c.JSON(http.StatusOK, sessions)
}

// ----- public -----

// PublicSchedule serves GET /v1/public/schedule?type=presencial|online:
// the published days of the programme with their published sessions by
// rank.
func (h *ScheduleHandler) PublicSchedule(c echo.Context) error {
    kind := strings.ToLower(c.QueryParam("type"))
    if kind == "" {
        kind = model.ModalityPresencial
    }
    if kind != model.ModalityPresencial && kind != model.ModalityOnline {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "type must be presencial or online"})
    }
    slug := kind
    if h.Slug != nil {
        slug = h.Slug(kind)
    }
    ctx := c.Request().Context()
    days, err := h.Days.List(ctx, slug, true)
    if err != nil {
        return respondError(c, h.Log, "PublicSchedule", err)
    }
    out := make([]model.DayProgramme, 0, len(days))
    for _, d := range days {
        sessions, err := h.Sessions.ListByDay(ctx, d.ID, true)
        if err != nil {
            return respondError(c, h.Log, "PublicSchedule", err)
        }
        out = append(out, model.DayProgramme{ScheduleDay: d, Sessions: sessions})
    }
    c.Response().Header().Set("Cache-Control", "public, max-age=60")
    return c.JSON(http.StatusOK, out)
}
