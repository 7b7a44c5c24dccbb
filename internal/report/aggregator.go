// Package report turns raw charges and registrations into the figures the
// finance dashboard draws: the executive summary, daily and weekly revenue
// series, the per-brand breakdown, the conversion funnel and the customer
// rollup.  Every function here is a pure projection of its input; the same
// slice always produces the same output, which is what lets the HTTP layer
// cache responses and the exporters re-render them.
package report

import (
    "sort"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// Options tunes how charges are bucketed in time.
type Options struct {
    // Location is the calendar used to assign a charge to a day.  Nil means UTC.
    Location *time.Location
    // End anchors the trailing 7-day windows of the weekly series.  The
    // zero value anchors them at the day of the latest charge.
    End time.Time
    // Currency is copied into the summary.
    Currency string
}

func (o Options) loc() *time.Location {
    if o.Location == nil {
        return time.UTC
    }
    return o.Location
}

// Aggregate computes the summary and every breakdown for charges.  An empty
// slice yields a zeroed report with empty (non-nil) series.
func Aggregate(charges []model.Charge, opts Options) model.Report {
    summary := Summarize(charges)
    summary.Currency = opts.Currency
    return model.Report{
        Summary: summary,
        Daily:   DailySeries(charges, opts),
        Weekly:  WeeklySeries(charges, opts),
        Brands:  Brands(charges, summary.Bruto),
    }
}

// countsTowardRevenue is true for the charges whose money is reported:
// confirmed payments and those still waiting.  Failed and refunded charges
// are only counted.
func countsTowardRevenue(c model.Charge) bool {
    return c.Status != model.ChargeFailed && c.Status != model.ChargeRefunded
}

// Summarize classifies each charge exactly once: paid (succeeded), failed,
// refunded, or unpaid (anything else).  Money totals cover paid and unpaid
// charges; the average ticket only looks at paid ones.
func Summarize(charges []model.Charge) model.Summary {
    var s model.Summary
    var paidNet int64
    for _, c := range charges {
        switch {
        case c.IsPaid():
            s.Pagos++
            paidNet += c.Net
        case c.Status == model.ChargeFailed:
            s.Falhas++
        case c.Status == model.ChargeRefunded:
            s.Reembolsos++
        default:
            s.NaoPagos++
        }
        if countsTowardRevenue(c) {
            s.Bruto += c.Gross
            s.Taxas += c.Fee
            s.Liquido += c.Net
        }
    }
    if s.Pagos > 0 {
        s.TicketMedio = decimal.NewFromInt(paidNet).
            Div(decimal.NewFromInt(int64(s.Pagos))).
            Round(0).
            IntPart()
    }
    s.TaxaConversao = percent(int64(s.Pagos), int64(s.Pagos+s.NaoPagos))
    return s
}

// percent returns part/whole*100 rounded to two decimals, 0 when whole is 0.
func percent(part, whole int64) float64 {
    if whole == 0 {
        return 0
    }
    f, _ := decimal.NewFromInt(part).
        Mul(decimal.NewFromInt(100)).
        Div(decimal.NewFromInt(whole)).
        Round(2).
        Float64()
    return f
}

// Brands groups revenue-bearing charges by (brand, funding).  Percentages are
// taken over totalGross.  Groups are ordered by net revenue, then by name, so
// the output is stable.
func Brands(charges []model.Charge, totalGross int64) []model.BrandBreakdown {
    type key struct{ brand, funding string }
    groups := map[key]*model.BrandBreakdown{}
    for _, c := range charges {
        if !countsTowardRevenue(c) {
            continue
        }
        k := key{c.BrandOrUnknown(), c.FundingOrUnknown()}
        g, ok := groups[k]
        if !ok {
            g = &model.BrandBreakdown{Brand: k.brand, Funding: k.funding}
            groups[k] = g
        }
        g.Count++
        g.Bruto += c.Gross
        g.Liquido += c.Net
    }

    out := make([]model.BrandBreakdown, 0, len(groups))
    for _, g := range groups {
        g.Percentage = percent(g.Bruto, totalGross)
        out = append(out, *g)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Liquido != out[j].Liquido {
            return out[i].Liquido > out[j].Liquido
        }
        if out[i].Brand != out[j].Brand {
            return out[i].Brand < out[j].Brand
        }
        return out[i].Funding < out[j].Funding
    })
    return out
}

// ApplyFilter keeps the charges matching f.  Used when the store could not
// apply a criterion itself (lot and coupon live in payment metadata).
func ApplyFilter(charges []model.Charge, f model.ReportFilter) []model.Charge {
    out := make([]model.Charge, 0, len(charges))
    for _, c := range charges {
        if f.Matches(c) {
            out = append(out, c)
        }
    }
    return out
}
