package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// PayoutRepo reads settlement and dispute mirrors (`stripe_payouts`,
// `stripe_disputes`) and applies payout updates pushed by the broker.
type PayoutRepo struct {
    db *sql.DB
}

func NewPayoutRepo(db *sql.DB) *PayoutRepo { return &PayoutRepo{db: db} }

const payoutColumns = `id, amount, currency, status, arrival_date`

func (r *PayoutRepo) one(ctx context.Context, q string, args ...any) (*model.Payout, error) {
    var p model.Payout
    err := r.db.QueryRowContext(ctx, q, args...).Scan(&p.ID, &p.Amount, &p.Currency, &p.Status, &p.ArrivalDate)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    p.ArrivalDate = p.ArrivalDate.UTC()
    return &p, nil
}

// Next returns the earliest payout still in transit, or nil.
func (r *PayoutRepo) Next(ctx context.Context, currency string) (*model.Payout, error) {
    const q = `SELECT ` + payoutColumns + ` FROM stripe_payouts
               WHERE status = 'in_transit' AND LOWER(currency) = ?
               ORDER BY arrival_date ASC LIMIT 1`
    return r.one(ctx, q, strings.ToLower(currency))
}

// Last returns the most recent paid payout, or nil.
func (r *PayoutRepo) Last(ctx context.Context, currency string) (*model.Payout, error) {
    const q = `SELECT ` + payoutColumns + ` FROM stripe_payouts
               WHERE status = 'paid' AND LOWER(currency) = ?
               ORDER BY arrival_date DESC LIMIT 1`
    return r.one(ctx, q, strings.ToLower(currency))
}

// OpenDisputes counts disputes that still need an answer or a decision.
func (r *PayoutRepo) OpenDisputes(ctx context.Context) (int, error) {
    st := model.OpenDisputeStatuses
    q := `SELECT COUNT(*) FROM stripe_disputes WHERE status IN (?` + strings.Repeat(",?", len(st)-1) + `)`
    args := make([]any, len(st))
    for i, s := range st {
        args[i] = s
    }
    var n int
    if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// Upsert inserts or refreshes a payout by id.
func (r *PayoutRepo) Upsert(ctx context.Context, p model.Payout) error {
    const q = `INSERT INTO stripe_payouts (id, amount, currency, status, arrival_date)
               VALUES (?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE amount = VALUES(amount), currency = VALUES(currency),
                                       status = VALUES(status), arrival_date = VALUES(arrival_date)`
    _, err := r.db.ExecContext(ctx, q, p.ID, p.Amount, strings.ToLower(p.Currency), p.Status, p.ArrivalDate.UTC())
    return err
}
