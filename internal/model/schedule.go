package model

import "time"

// Modalities shared by days and sessions.
const (
    ModalityPresencial = "presencial"
    ModalityOnline     = "online"
    ModalityHibrido    = "hibrido"
)

// ScheduleDay is one day of the conference programme.  A day owns its
// sessions; deleting it deletes them.
//
// Fields:
//  ID           – uuid primary key.
//  EventSlug    – which programme (in-person or online) the day belongs to.
//  Date         – calendar date, "YYYY-MM-DD".
//  WeekdayLabel – display label ("Quinta-feira").
//  SortOrder    – position among the programme's days.
//  IsPublished  – whether the public site shows it.
type ScheduleDay struct {
    ID             string    `json:"id"`
    EventSlug      string    `json:"event_slug"`
    Date           string    `json:"date"`
    WeekdayLabel   string    `json:"weekday_label"`
    Headline       string    `json:"headline"`
    Theme          string    `json:"theme"`
    Location       string    `json:"location"`
    Modality       string    `json:"modality"`
    SortOrder      int       `json:"sort_order"`
    IsPublished    bool      `json:"is_published"`
    SeoTitle       string    `json:"seo_title,omitempty"`
    SeoDescription string    `json:"seo_description,omitempty"`
    Slug           string    `json:"slug,omitempty"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}

// ScheduleSession is an activity within a day.  OrderInDay is its rank;
// after every write the ranks of a day form exactly {0, ..., n-1}.
type ScheduleSession struct {
    ID            string     `json:"id"`
    DayID         string     `json:"day_id"`
    SessionType   string     `json:"session_type"`
    Title         string     `json:"title"`
    Description   string     `json:"description,omitempty"`
    StartAt       time.Time  `json:"start_at"`
    EndAt         *time.Time `json:"end_at,omitempty"`
    Room          string     `json:"room,omitempty"`
    Modality      string     `json:"modality,omitempty"`
    LivestreamURL string     `json:"livestream_url,omitempty"`
    MaterialsURL  string     `json:"materials_url,omitempty"`
    IsParallel    bool       `json:"is_parallel"`
    IsFeatured    bool       `json:"is_featured"`
    OrderInDay    int        `json:"order_in_day"`
    IsPublished   bool       `json:"is_published"`
    CreatedAt     time.Time  `json:"created_at"`
    UpdatedAt     time.Time  `json:"updated_at"`
}

// SessionTypes lists the accepted session_type values.
var SessionTypes = []string{
    "credenciamento", "abertura", "conferencia", "palestra", "painel", "mesa_redonda",
    "workshop", "sessoes_simultaneas", "intervalo", "cerimonia", "encerramento", "outro",
}

// Rank assigns a position to a session within its day.
type Rank struct {
    SessionID  string `json:"session_id"`
    OrderInDay int    `json:"order_in_day"`
}

// DayProgramme is a day with its sessions in rank order.
type DayProgramme struct {
    ScheduleDay
    Sessions []ScheduleSession `json:"sessions"`
}
