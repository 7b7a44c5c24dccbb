package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/google/uuid"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// SessionRepo manages persistence for schedule sessions
// (`schedule_sessions`).  Every write that adds, removes or moves a session
// leaves the ranks of each touched day dense ({0..n-1}).
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
    return &SessionRepo{db: db}
}

const sessionColumns = `id, day_id, session_type, title, COALESCE(description, ''), start_at, end_at,
       COALESCE(room, ''), COALESCE(modality, ''), COALESCE(livestream_url, ''), COALESCE(materials_url, ''),
       is_parallel, is_featured, order_in_day, is_published, created_at, updated_at`

func scanSession(s rowScanner) (model.ScheduleSession, error) {
    var (
        x   model.ScheduleSession
        end sql.NullTime
    )
    err := s.Scan(&x.ID, &x.DayID, &x.SessionType, &x.Title, &x.Description, &x.StartAt, &end,
        &x.Room, &x.Modality, &x.LivestreamURL, &x.MaterialsURL,
        &x.IsParallel, &x.IsFeatured, &x.OrderInDay, &x.IsPublished, &x.CreatedAt, &x.UpdatedAt)
    if err != nil {
        return x, err
    }
    if end.Valid {
        t := end.Time
        x.EndAt = &t
    }
    return x, nil
}

func endAtArg(s *model.ScheduleSession) any {
    if s.EndAt == nil {
        return nil
    }
    return *s.EndAt
}

// Get retrieves a session by id.  It returns ErrSessionNotFound if there is
// no matching row.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.ScheduleSession, error) {
    q := `SELECT ` + sessionColumns + ` FROM schedule_sessions WHERE id = ?`
    s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSessionNotFound
        }
        return nil, err
    }
    return &s, nil
}

// ListByDay returns a day's sessions by rank.  Ties (which only appear in
// rows written before ranks were enforced) fall back to start time.
func (r *SessionRepo) ListByDay(ctx context.Context, dayID string, publishedOnly bool) ([]model.ScheduleSession, error) {
    q := `SELECT ` + sessionColumns + ` FROM schedule_sessions WHERE day_id = ?`
    if publishedOnly {
        q += ` AND is_published = TRUE`
    }
    q += ` ORDER BY order_in_day ASC, start_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, dayID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []model.ScheduleSession{}
    for rows.Next() {
        s, err := scanSession(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// lockDay takes a row lock on the day and returns how many sessions it has.
func lockDay(ctx context.Context, tx *sql.Tx, dayID string) (int, error) {
    var id string
    err := tx.QueryRowContext(ctx, `SELECT id FROM schedule_days WHERE id = ? FOR UPDATE`, dayID).Scan(&id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, ErrDayNotFound
        }
        return 0, err
    }
    var n int
    if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedule_sessions WHERE day_id = ?`, dayID).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// Create appends a session at the end of its day (rank n).
func (r *SessionRepo) Create(ctx context.Context, s *model.ScheduleSession) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    n, err := lockDay(ctx, tx, s.DayID)
    if err != nil {
        return err
    }
    s.ID = uuid.NewString()
    s.OrderInDay = n

    const q = `INSERT INTO schedule_sessions
               (id, day_id, session_type, title, description, start_at, end_at, room, modality,
                livestream_url, materials_url, is_parallel, is_featured, order_in_day, is_published)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, q, s.ID, s.DayID, s.SessionType, s.Title, s.Description, s.StartAt, endAtArg(s),
        s.Room, s.Modality, s.LivestreamURL, s.MaterialsURL, s.IsParallel, s.IsFeatured, s.OrderInDay, s.IsPublished); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    return r.reload(ctx, s)
}

// Update overwrites the editable fields of a session.  When DayID changes
// the session goes to the end of the target day and the source day is
// renumbered in the same transaction.  Rank is never set through Update.
func (r *SessionRepo) Update(ctx context.Context, s *model.ScheduleSession) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    var fromDay string
    var rank int
    err = tx.QueryRowContext(ctx, `SELECT day_id, order_in_day FROM schedule_sessions WHERE id = ? FOR UPDATE`, s.ID).Scan(&fromDay, &rank)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrSessionNotFound
        }
        return err
    }
    moved := s.DayID != "" && s.DayID != fromDay
    if s.DayID == "" {
        s.DayID = fromDay
    }
    if moved {
        if rank, err = lockDay(ctx, tx, s.DayID); err != nil {
            return err
        }
    }

    const q = `UPDATE schedule_sessions
               SET day_id = ?, session_type = ?, title = ?, description = ?, start_at = ?, end_at = ?, room = ?,
                   modality = ?, livestream_url = ?, materials_url = ?, is_parallel = ?, is_featured = ?,
                   order_in_day = ?, is_published = ?
               WHERE id = ?`
    if _, err := tx.ExecContext(ctx, q, s.DayID, s.SessionType, s.Title, s.Description, s.StartAt, endAtArg(s),
        s.Room, s.Modality, s.LivestreamURL, s.MaterialsURL, s.IsParallel, s.IsFeatured, rank, s.IsPublished, s.ID); err != nil {
        return err
    }
    if moved {
        if err := renumberTx(ctx, tx, fromDay); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    return r.reload(ctx, s)
}

// SetPublished toggles the visibility of a session on the public site.
func (r *SessionRepo) SetPublished(ctx context.Context, id string, published bool) (*model.ScheduleSession, error) {
    if _, err := r.db.ExecContext(ctx, `UPDATE schedule_sessions SET is_published = ? WHERE id = ?`, published, id); err != nil {
        return nil, err
    }
    return r.Get(ctx, id)
}

// Delete removes a session and closes the gap it leaves in its day.
// It returns the id of the day the session belonged to.
func (r *SessionRepo) Delete(ctx context.Context, id string) (string, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return "", err
    }
    defer tx.Rollback()

    var dayID string
    err = tx.QueryRowContext(ctx, `SELECT day_id FROM schedule_sessions WHERE id = ? FOR UPDATE`, id).Scan(&dayID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return "", ErrSessionNotFound
        }
        return "", err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_sessions WHERE id = ?`, id); err != nil {
        return "", err
    }
    if err := renumberTx(ctx, tx, dayID); err != nil {
        return "", err
    }
    return dayID, tx.Commit()
}

// ApplyRanks writes every rank of a reorder in one transaction.  Either all
// ranks are stored or none are.  A session that is not part of dayID aborts
// the whole batch with ErrSessionNotFound.
func (r *SessionRepo) ApplyRanks(ctx context.Context, dayID string, ranks []model.Rank) error {
    if len(ranks) == 0 {
        return nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    if _, err := lockDay(ctx, tx, dayID); err != nil {
        return err
    }
    members, err := dayMembers(ctx, tx, dayID)
    if err != nil {
        return err
    }
    for _, rk := range ranks {
        if !members[rk.SessionID] {
            return ErrSessionNotFound
        }
    }
    stmt, err := tx.PrepareContext(ctx, `UPDATE schedule_sessions SET order_in_day = ? WHERE id = ? AND day_id = ?`)
    if err != nil {
        return err
    }
    defer stmt.Close()

    // RowsAffected is not checked: MySQL reports 0 for a row that already
    // held the rank, which happens when a concurrent renumber got there first.
    for _, rk := range ranks {
        if _, err := stmt.ExecContext(ctx, rk.OrderInDay, rk.SessionID, dayID); err != nil {
            return err
        }
    }
    return tx.Commit()
}

// dayMembers locks and returns the ids of the sessions of a day.
func dayMembers(ctx context.Context, tx *sql.Tx, dayID string) (map[string]bool, error) {
    rows, err := tx.QueryContext(ctx, `SELECT id FROM schedule_sessions WHERE day_id = ? FOR UPDATE`, dayID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := map[string]bool{}
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out[id] = true
    }
    return out, rows.Err()
}

// renumberTx rewrites the ranks of a day to {0..n-1}, keeping the current
// relative order.
func renumberTx(ctx context.Context, tx *sql.Tx, dayID string) error {
    rows, err := tx.QueryContext(ctx,
        `SELECT id, order_in_day FROM schedule_sessions WHERE day_id = ? ORDER BY order_in_day ASC, start_at ASC, id ASC`,
        dayID)
    if err != nil {
        return err
    }
    var changed []model.Rank
    i := 0
    for rows.Next() {
        var rk model.Rank
        if err := rows.Scan(&rk.SessionID, &rk.OrderInDay); err != nil {
            rows.Close()
            return err
        }
        if rk.OrderInDay != i {
            changed = append(changed, model.Rank{SessionID: rk.SessionID, OrderInDay: i})
        }
        i++
    }
    rows.Close()
    if err := rows.Err(); err != nil {
        return err
    }

    for _, rk := range changed {
        if _, err := tx.ExecContext(ctx, `UPDATE schedule_sessions SET order_in_day = ? WHERE id = ?`, rk.OrderInDay, rk.SessionID); err != nil {
            return err
        }
    }
    return nil
}

func (r *SessionRepo) reload(ctx context.Context, s *model.ScheduleSession) error {
    got, err := r.Get(ctx, s.ID)
    if err != nil {
        return err
    }
    *s = *got
    return nil
}
