package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// RegistrationRepo manages rows of `event_registrations`.
type RegistrationRepo struct {
    db *sql.DB
}

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// List returns registrations created within [from, to].  Nil bounds are open.
func (r *RegistrationRepo) List(ctx context.Context, from, to *time.Time) ([]model.Registration, error) {
    where := []string{}
    args := []any{}
    if from != nil {
        where = append(where, "created_at >= ?")
        args = append(args, from.UTC())
    }
    if to != nil {
        where = append(where, "created_at <= ?")
        args = append(args, to.UTC())
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    q := `SELECT id, email, COALESCE(full_name, ''), COALESCE(payment_status, ''), COALESCE(amount_paid, 0),
                 COALESCE(category_name, ''), COALESCE(coupon_code, ''), created_at, updated_at
          FROM event_registrations
          WHERE ` + cond + `
          ORDER BY created_at ASC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []model.Registration{}
    for rows.Next() {
        var g model.Registration
        if err := rows.Scan(&g.ID, &g.Email, &g.FullName, &g.PaymentStatus, &g.AmountPaid,
            &g.Category, &g.Coupon, &g.CreatedAt, &g.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, g)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// DeleteDuplicatesByEmail keeps the most recent registration of email and
// deletes the rest inside one transaction.  It returns how many rows were
// removed; zero means there were no duplicates.
func (r *RegistrationRepo) DeleteDuplicatesByEmail(ctx context.Context, email string) (int64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    defer tx.Rollback()

    const sel = `SELECT id FROM event_registrations WHERE LOWER(email) = ? ORDER BY created_at DESC, id DESC FOR UPDATE`
    rows, err := tx.QueryContext(ctx, sel, email)
    if err != nil {
        return 0, err
    }
    var ids []any
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            rows.Close()
            return 0, err
        }
        ids = append(ids, id)
    }
    rows.Close()
    if err := rows.Err(); err != nil {
        return 0, err
    }
    if len(ids) <= 1 {
        return 0, tx.Commit()
    }

    // the first id is the most recent one and survives
    stale := ids[1:]
    del := `DELETE FROM event_registrations WHERE id IN (?` + strings.Repeat(",?", len(stale)-1) + `)`
    res, err := tx.ExecContext(ctx, del, stale...)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    return n, tx.Commit()
}

// DeleteByEmail removes every registration of email.
func (r *RegistrationRepo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    res, err := r.db.ExecContext(ctx, `DELETE FROM event_registrations WHERE LOWER(email) = ?`, email)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
