package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/google/uuid"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// DayRepo manages persistence for schedule days (`schedule_days`).
type DayRepo struct {
    db *sql.DB
}

// NewDayRepo constructs a DayRepo with the given DB handle.
func NewDayRepo(db *sql.DB) *DayRepo {
    return &DayRepo{db: db}
}

const dayColumns = `id, event_slug, DATE_FORMAT(date, '%Y-%m-%d'), COALESCE(weekday_label, ''),
       COALESCE(headline, ''), COALESCE(theme, ''), COALESCE(location, ''), modality,
       sort_order, is_published, COALESCE(seo_title, ''), COALESCE(seo_description, ''),
       COALESCE(slug, ''), created_at, updated_at`

func scanDay(s rowScanner) (model.ScheduleDay, error) {
    var d model.ScheduleDay
    err := s.Scan(&d.ID, &d.EventSlug, &d.Date, &d.WeekdayLabel,
        &d.Headline, &d.Theme, &d.Location, &d.Modality,
        &d.SortOrder, &d.IsPublished, &d.SeoTitle, &d.SeoDescription,
        &d.Slug, &d.CreatedAt, &d.UpdatedAt)
    return d, err
}

// Create inserts a day with a fresh uuid and reads it back so DB defaults
// (timestamps) are populated.  A second day with the same date in the same
// programme yields ErrConflict.
func (r *DayRepo) Create(ctx context.Context, d *model.ScheduleDay) error {
    d.ID = uuid.NewString()
    const q = `INSERT INTO schedule_days
               (id, event_slug, date, weekday_label, headline, theme, location, modality, sort_order,
                is_published, seo_title, seo_description, slug)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, d.ID, d.EventSlug, d.Date, d.WeekdayLabel, d.Headline, d.Theme,
        d.Location, d.Modality, d.SortOrder, d.IsPublished, d.SeoTitle, d.SeoDescription, d.Slug)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    return r.reload(ctx, d)
}

// Get retrieves a day by id.  It returns ErrDayNotFound if there is no
// matching row.
func (r *DayRepo) Get(ctx context.Context, id string) (*model.ScheduleDay, error) {
    q := `SELECT ` + dayColumns + ` FROM schedule_days WHERE id = ?`
    d, err := scanDay(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrDayNotFound
        }
        return nil, err
    }
    return &d, nil
}

// List returns the days of a programme ordered by sort order then date.  An
// empty slug lists every programme.
func (r *DayRepo) List(ctx context.Context, eventSlug string, publishedOnly bool) ([]model.ScheduleDay, error) {
    where := []string{}
    args := []any{}
    if eventSlug != "" {
        where = append(where, "event_slug = ?")
        args = append(args, eventSlug)
    }
    if publishedOnly {
        where = append(where, "is_published = TRUE")
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    q := `SELECT ` + dayColumns + ` FROM schedule_days WHERE ` + cond + ` ORDER BY sort_order ASC, date ASC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []model.ScheduleDay{}
    for rows.Next() {
        d, err := scanDay(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// Update overwrites the editable fields of a day.
func (r *DayRepo) Update(ctx context.Context, d *model.ScheduleDay) error {
    const q = `UPDATE schedule_days
               SET event_slug = ?, date = ?, weekday_label = ?, headline = ?, theme = ?, location = ?,
                   modality = ?, sort_order = ?, is_published = ?, seo_title = ?, seo_description = ?, slug = ?
               WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, d.EventSlug, d.Date, d.WeekdayLabel, d.Headline, d.Theme, d.Location,
        d.Modality, d.SortOrder, d.IsPublished, d.SeoTitle, d.SeoDescription, d.Slug, d.ID)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    return r.reload(ctx, d)
}

// SetPublished toggles the visibility of a day on the public site.
func (r *DayRepo) SetPublished(ctx context.Context, id string, published bool) (*model.ScheduleDay, error) {
    if _, err := r.db.ExecContext(ctx, `UPDATE schedule_days SET is_published = ? WHERE id = ?`, published, id); err != nil {
        return nil, err
    }
    d := &model.ScheduleDay{ID: id}
    if err := r.reload(ctx, d); err != nil {
        return nil, err
    }
    return d, nil
}

// reload re-reads the row after an UPDATE.  MySQL reports zero affected rows
// when nothing changed, so absence is decided here, not by RowsAffected.
func (r *DayRepo) reload(ctx context.Context, d *model.ScheduleDay) error {
    got, err := r.Get(ctx, d.ID)
    if err != nil {
        return err
    }
    *d = *got
    return nil
}

// Delete removes a day and all of its sessions in one transaction.
func (r *DayRepo) Delete(ctx context.Context, id string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_sessions WHERE day_id = ?`, id); err != nil {
        return err
    }
    res, err := tx.ExecContext(ctx, `DELETE FROM schedule_days WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err != nil {
        return err
    } else if n == 0 {
        return ErrDayNotFound
    }
    return tx.Commit()
}
