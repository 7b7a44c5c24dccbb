package report

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// ChargeStore is the read side of the charges table.
type ChargeStore interface {
    List(ctx context.Context, f model.ReportFilter) ([]model.Charge, error)
}

// RegistrationStore lists registrations created within an optional window.
type RegistrationStore interface {
    List(ctx context.Context, from, to *time.Time) ([]model.Registration, error)
}

// PayoutStore exposes settlement and dispute data for the summary header.
type PayoutStore interface {
    Next(ctx context.Context, currency string) (*model.Payout, error)
    Last(ctx context.Context, currency string) (*model.Payout, error)
    OpenDisputes(ctx context.Context) (int, error)
}

// Full is a complete dashboard snapshot: the aggregated report plus the raw
// material the tables and exporters need.
type Full struct {
    Report    model.Report     `json:"report"`
    Funnel    model.Funnel     `json:"funnel"`
    Charges   []model.Charge   `json:"charges"`
    Customers []model.Customer `json:"customers"`
    Insights  []string         `json:"insights"`
}

// Service loads records for a filter and runs the aggregator over them.
type Service struct {
    Charges       ChargeStore
    Registrations RegistrationStore
    Payouts       PayoutStore
    Location      *time.Location
    Currency      string
    SlowThreshold time.Duration
    Log           *logrus.Logger
}

// Build fetches charges, registrations, payouts and disputes concurrently,
// then aggregates.  Any fetch failure fails the whole build; nothing is
// retried.
func (s *Service) Build(ctx context.Context, f model.ReportFilter) (Full, error) {
    started := time.Now()
    if f.Currency == "" {
        f.Currency = s.Currency
    }

    var (
        charges  []model.Charge
        regs     []model.Registration
        next     *model.Payout
        last     *model.Payout
        disputes int
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        var err error
        charges, err = s.Charges.List(gctx, f)
        if err != nil {
            return fmt.Errorf("list charges: %w", err)
        }
        return nil
    })
    if s.Registrations != nil {
        g.Go(func() error {
            var err error
            regs, err = s.Registrations.List(gctx, f.From, f.To)
            if err != nil {
                return fmt.Errorf("list registrations: %w", err)
            }
            return nil
        })
    }
    if s.Payouts != nil {
        g.Go(func() error {
            var err error
            if next, err = s.Payouts.Next(gctx, f.Currency); err != nil {
                return fmt.Errorf("next payout: %w", err)
            }
            if last, err = s.Payouts.Last(gctx, f.Currency); err != nil {
                return fmt.Errorf("last payout: %w", err)
            }
            if disputes, err = s.Payouts.OpenDisputes(gctx); err != nil {
                return fmt.Errorf("open disputes: %w", err)
            }
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return Full{}, err
    }

    charges = ApplyFilter(charges, f)
    opts := Options{Location: s.Location, Currency: f.Currency}
    if f.To != nil {
        opts.End = *f.To
    }
    rep := Aggregate(charges, opts)
    rep.Summary.Disputas = disputes
    rep.Summary.ProximoPayout = payoutInfo(next)
    rep.Summary.UltimoPayout = payoutInfo(last)
    funnel := BuildFunnel(regs)

    out := Full{
        Report:    rep,
        Funnel:    funnel,
        Charges:   charges,
        Customers: SearchCustomers(RollupCustomers(charges), f.Search),
        Insights:  Insights(rep, funnel),
    }
    s.logSlow(started, f, len(charges))
    return out, nil
}

func payoutInfo(p *model.Payout) *model.PayoutInfo {
    if p == nil {
        return nil
    }
    return &model.PayoutInfo{Date: p.ArrivalDate, Amount: p.Amount, Currency: p.Currency}
}

func (s *Service) logSlow(started time.Time, f model.ReportFilter, n int) {
    if s.Log == nil || s.SlowThreshold <= 0 {
        return
    }
    d := time.Since(started)
    if d < s.SlowThreshold {
        return
    }
    s.Log.WithFields(logrus.Fields{
        "module":  "report",
        "ms":      d.Milliseconds(),
        "charges": n,
        "status":  f.Status,
        "lot":     f.Lot,
        "coupon":  f.Coupon,
        "brand":   f.Brand,
    }).Warn("slow report")
}
