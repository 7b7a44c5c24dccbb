package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// ChargeRepo reads the payment provider's charges mirrored into the
// `stripe_charges` table.  Rows are written by the sync job; this repository
// only reads.
type ChargeRepo struct {
    db *sql.DB
}

// NewChargeRepo constructs a ChargeRepo with the given DB handle.
func NewChargeRepo(db *sql.DB) *ChargeRepo {
    return &ChargeRepo{db: db}
}

// chargeColumns are selected in the order scanCharge expects.  Fee and net
// stay nullable; every other optional column is coalesced here.
const chargeColumns = `id, COALESCE(payment_intent_id, ''), created, amount, fee, net,
       COALESCE(currency, ''), status, paid, COALESCE(failure_code, ''), COALESCE(amount_refunded, 0),
       COALESCE(customer_email, ''), COALESCE(customer_name, ''),
       COALESCE(card_brand, ''), COALESCE(card_funding, ''), COALESCE(card_last4, ''),
       COALESCE(exp_month, 0), COALESCE(exp_year, 0),
       COALESCE(lot_code, ''), COALESCE(coupon_code, '')`

type rowScanner interface {
    Scan(dest ...any) error
}

// scanCharge reads one row and resolves fee/net once, so nothing above the
// repository deals with missing amounts.
func scanCharge(s rowScanner) (model.Charge, error) {
    var (
        c        model.Charge
        fee, net sql.NullInt64
    )
    err := s.Scan(
        &c.ID, &c.PaymentIntentID, &c.Created, &c.Gross, &fee, &net,
        &c.Currency, &c.Status, &c.Paid, &c.FailureCode, &c.RefundedAmount,
        &c.CustomerEmail, &c.CustomerName,
        &c.Brand, &c.Funding, &c.Last4,
        &c.ExpMonth, &c.ExpYear,
        &c.Lot, &c.Coupon,
    )
    if err != nil {
        return c, err
    }
    var feePtr, netPtr *int64
    if fee.Valid {
        feePtr = &fee.Int64
    }
    if net.Valid {
        netPtr = &net.Int64
    }
    c.Fee, c.Net = model.ResolveAmounts(c.Gross, feePtr, netPtr)
    c.Created = c.Created.UTC()
    return c, nil
}

// chargeWhere turns a filter into a WHERE clause and its arguments.
func chargeWhere(f model.ReportFilter) (string, []any) {
    where := []string{}
    args := []any{}

    if f.From != nil {
        where = append(where, "created >= ?")
        args = append(args, f.From.UTC())
    }
    if f.To != nil {
        where = append(where, "created <= ?")
        args = append(args, f.To.UTC())
    }
    if f.Status != "" {
        where = append(where, "status = ?")
        args = append(args, strings.ToLower(f.Status))
    }
    if f.Brand != "" {
        where = append(where, "LOWER(card_brand) = ?")
        args = append(args, strings.ToLower(f.Brand))
    }
    if f.Currency != "" {
        // charges without a currency belong to the default one, as in ReportFilter.Matches
        where = append(where, "(currency IS NULL OR currency = '' OR LOWER(currency) = ?)")
        args = append(args, strings.ToLower(f.Currency))
    }
    if f.Lot != "" {
        where = append(where, "LOWER(lot_code) = ?")
        args = append(args, strings.ToLower(f.Lot))
    }
    if f.Coupon != "" {
        where = append(where, "LOWER(coupon_code) = ?")
        args = append(args, strings.ToLower(f.Coupon))
    }
    if f.Search != "" {
        where = append(where, "(LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?)")
        like := "%" + strings.ToLower(f.Search) + "%"
        args = append(args, like, like)
    }

    if len(where) == 0 {
        return "1=1", args
    }
    return strings.Join(where, " AND "), args
}

// List returns every charge matching f, oldest first.  Limit and offset are
// ignored; aggregation always sees the full window.
func (r *ChargeRepo) List(ctx context.Context, f model.ReportFilter) ([]model.Charge, error) {
    cond, args := chargeWhere(f)
    q := `SELECT ` + chargeColumns + `
          FROM stripe_charges
          WHERE ` + cond + `
          ORDER BY created ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []model.Charge{}
    for rows.Next() {
        c, err := scanCharge(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// Page returns one page of charges, newest first, with the total count of
// matching rows.
func (r *ChargeRepo) Page(ctx context.Context, f model.ReportFilter) (model.Page[model.Charge], error) {
    f = f.WithPage(f.Limit, f.Offset)
    cond, args := chargeWhere(f)

    var total int
    countSQL := `SELECT COUNT(*) FROM stripe_charges WHERE ` + cond
    if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
        return model.Page[model.Charge]{}, err
    }

    dataSQL := `SELECT ` + chargeColumns + `
          FROM stripe_charges
          WHERE ` + cond + `
          ORDER BY created DESC, id DESC
          LIMIT ? OFFSET ?`
    argsData := append(append([]any{}, args...), f.Limit, f.Offset)
    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return model.Page[model.Charge]{}, err
    }
    defer rows.Close()

    items := make([]model.Charge, 0, f.Limit)
    for rows.Next() {
        c, err := scanCharge(rows)
        if err != nil {
            return model.Page[model.Charge]{}, err
        }
        items = append(items, c)
    }
    if err := rows.Err(); err != nil {
        return model.Page[model.Charge]{}, err
    }
    return model.NewPage(items, total, f.Limit, f.Offset), nil
}
