package report

import (
    "time"

    "github.com/iliyamo/civeni-admin/internal/model"
)

const dayLayout = "2006-01-02"

// civilDay is a calendar date expressed as days since 1970-01-01.  Working
// on day numbers keeps bucketing immune to DST transitions in loc.
type civilDay int64

func dayOf(t time.Time, loc *time.Location) civilDay {
    y, m, d := t.In(loc).Date()
    return civilDay(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// start returns local midnight of the day.
func (d civilDay) start(loc *time.Location) time.Time {
    u := time.Unix(int64(d)*86400, 0).UTC()
    return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)
}

func (d civilDay) label() string {
    return time.Unix(int64(d)*86400, 0).UTC().Format(dayLayout)
}

// bucket accumulates one charge into a series point.
func bucket(p *model.SeriesPoint, c model.Charge) {
    p.Transacoes++
    switch {
    case c.IsPaid():
        p.Pagos++
    case countsTowardRevenue(c):
        p.NaoPagos++
    }
    if countsTowardRevenue(c) {
        p.Bruto += c.Gross
        p.Taxas += c.Fee
        p.Liquido += c.Net
    }
}

// DailySeries buckets charges by calendar day in opts.Location.  Days with no
// charges between the first and the last one are present with zero values so
// charts keep a continuous axis.
func DailySeries(charges []model.Charge, opts Options) []model.SeriesPoint {
    if len(charges) == 0 {
        return []model.SeriesPoint{}
    }
    loc := opts.loc()
    byDay := map[civilDay]*model.SeriesPoint{}
    first, last := dayOf(charges[0].Created, loc), dayOf(charges[0].Created, loc)
    for _, c := range charges {
        d := dayOf(c.Created, loc)
        if d < first {
            first = d
        }
        if d > last {
            last = d
        }
        p, ok := byDay[d]
        if !ok {
            p = &model.SeriesPoint{}
            byDay[d] = p
        }
        bucket(p, c)
    }

    out := make([]model.SeriesPoint, 0, int(last-first)+1)
    for d := first; d <= last; d++ {
        p := model.SeriesPoint{}
        if got, ok := byDay[d]; ok {
            p = *got
        }
        p.Start = d.start(loc)
        p.End = (d + 1).start(loc)
        p.Label = d.label()
        out = append(out, p)
    }
    return out
}

// WeeklySeries buckets charges into fixed 7-day trailing windows.  The
// newest window ends on the anchor day (opts.End, or the latest charge day)
// and each older window ends the day before the next one starts.  Charges
// after the anchor are ignored.  Windows are returned oldest first.
func WeeklySeries(charges []model.Charge, opts Options) []model.SeriesPoint {
    if len(charges) == 0 {
        return []model.SeriesPoint{}
    }
    loc := opts.loc()

    var anchor civilDay
    if !opts.End.IsZero() {
        anchor = dayOf(opts.End, loc)
    } else {
        anchor = dayOf(charges[0].Created, loc)
        for _, c := range charges {
            if d := dayOf(c.Created, loc); d > anchor {
                anchor = d
            }
        }
    }

    byWindow := map[int64]*model.SeriesPoint{}
    oldest := int64(-1)
    for _, c := range charges {
        d := dayOf(c.Created, loc)
        if d > anchor {
            continue
        }
        w := int64(anchor-d) / 7
        if w > oldest {
            oldest = w
        }
        p, ok := byWindow[w]
        if !ok {
            p = &model.SeriesPoint{}
            byWindow[w] = p
        }
        bucket(p, c)
    }

    out := make([]model.SeriesPoint, 0, oldest+1)
    for w := oldest; w >= 0; w-- {
        endDay := anchor - civilDay(7*w)
        startDay := endDay - 6
        p := model.SeriesPoint{}
        if got, ok := byWindow[w]; ok {
            p = *got
        }
        p.Start = startDay.start(loc)
        p.End = (endDay + 1).start(loc)
        p.Label = startDay.label() + "/" + endDay.label()
        out = append(out, p)
    }
    return out
}
