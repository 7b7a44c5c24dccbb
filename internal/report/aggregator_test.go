package report

import (
    "math/rand"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
)

func charge(id string, gross, fee int64, status string, created time.Time) model.Charge {
    f, n := model.ResolveAmounts(gross, &fee, nil)
    return model.Charge{ID: id, Gross: gross, Fee: f, Net: n, Status: status, Created: created}
}

var day0 = time.Date(2025, 10, 20, 15, 0, 0, 0, time.UTC)

func TestSummarizeExample(t *testing.T) {
    in := []model.Charge{
        charge("a", 10000, 300, model.ChargeSucceeded, day0),
        charge("b", 5000, 150, model.ChargePending, day0),
    }
    s := Summarize(in)

    assert.Equal(t, int64(15000), s.Bruto)
    assert.Equal(t, int64(450), s.Taxas)
    assert.Equal(t, int64(14550), s.Liquido)
    assert.Equal(t, 1, s.Pagos)
    assert.Equal(t, 1, s.NaoPagos)
    assert.Equal(t, 50.0, s.TaxaConversao)
    assert.Equal(t, int64(9700), s.TicketMedio)
}

func TestSummarizeEmpty(t *testing.T) {
    s := Summarize(nil)
    require.Equal(t, model.Summary{}, s)

    r := Aggregate(nil, Options{})
    require.NotNil(t, r.Daily)
    require.NotNil(t, r.Weekly)
    require.NotNil(t, r.Brands)
    require.Empty(t, r.Daily)
}

func TestSummarizeReportedNetWins(t *testing.T) {
    fee, net := int64(100), int64(8000)
    f, n := model.ResolveAmounts(10000, &fee, &net)
    s := Summarize([]model.Charge{{Gross: 10000, Fee: f, Net: n, Status: model.ChargeSucceeded}})
    require.Equal(t, int64(8000), s.Liquido)
    require.Equal(t, int64(8000), s.TicketMedio)
}

func TestSummarizeFailedAndRefunded(t *testing.T) {
    in := []model.Charge{
        charge("a", 1000, 10, model.ChargeFailed, day0),
        charge("b", 2000, 20, model.ChargeRefunded, day0),
    }
    s := Summarize(in)
    require.Equal(t, 1, s.Falhas)
    require.Equal(t, 1, s.Reembolsos)
    require.Zero(t, s.Bruto)
    require.Zero(t, s.TaxaConversao)
    require.Zero(t, s.TicketMedio)
}

func randomCharges(r *rand.Rand, n int) []model.Charge {
    statuses := []string{model.ChargeSucceeded, model.ChargePending, model.ChargeFailed, model.ChargeRefunded, "requires_action"}
    brands := []string{"visa", "mastercard", "elo", ""}
    out := make([]model.Charge, n)
    for i := range out {
        c := charge("c", r.Int63n(100000), r.Int63n(5000), statuses[r.Intn(len(statuses))],
            day0.Add(time.Duration(r.Intn(30*24))*time.Hour))
        c.Brand = brands[r.Intn(len(brands))]
        c.Funding = []string{"credit", "debit"}[r.Intn(2)]
        out[i] = c
    }
    return out
}

func TestSummarizeProperties(t *testing.T) {
    r := rand.New(rand.NewSource(7))
    for i := 0; i < 200; i++ {
        in := randomCharges(r, r.Intn(60))
        s := Summarize(in)

        require.Equal(t, len(in), s.Counted())
        require.GreaterOrEqual(t, s.TaxaConversao, 0.0)
        require.LessOrEqual(t, s.TaxaConversao, 100.0)
        if s.Pagos+s.NaoPagos == 0 {
            require.Zero(t, s.TaxaConversao)
        }
        if s.Pagos == 0 {
            require.Zero(t, s.TicketMedio)
        }
    }
}

func TestAggregateIdempotent(t *testing.T) {
    r := rand.New(rand.NewSource(11))
    in := randomCharges(r, 80)
    opts := Options{Location: time.UTC, Currency: "BRL"}
    require.Equal(t, Aggregate(in, opts), Aggregate(in, opts))
}

func TestBrandsPercentages(t *testing.T) {
    in := []model.Charge{
        charge("a", 3000, 0, model.ChargeSucceeded, day0),
        charge("b", 1000, 0, model.ChargeSucceeded, day0),
        charge("c", 9999, 0, model.ChargeFailed, day0),
    }
    in[0].Brand, in[0].Funding = "visa", "credit"
    in[1].Brand, in[1].Funding = "visa", "debit"

    got := Brands(in, 4000)
    require.Len(t, got, 2)
    require.Equal(t, "credit", got[0].Funding)
    require.Equal(t, 75.0, got[0].Percentage)
    require.Equal(t, 25.0, got[1].Percentage)

    zero := Brands(in, 0)
    require.Zero(t, zero[0].Percentage)
}

func TestBrandsUnknown(t *testing.T) {
    got := Brands([]model.Charge{charge("a", 100, 0, model.ChargePending, day0)}, 100)
    require.Equal(t, "unknown", got[0].Brand)
    require.Equal(t, "unknown", got[0].Funding)
    require.Equal(t, 100.0, got[0].Percentage)
}

func TestApplyFilter(t *testing.T) {
    in := []model.Charge{
        {ID: "a", Lot: "LOTE1", Coupon: "PROMO", Created: day0},
        {ID: "b", Lot: "lote2", Created: day0},
    }
    got := ApplyFilter(in, model.ReportFilter{Lot: "lote1"})
    require.Len(t, got, 1)
    require.Equal(t, "a", got[0].ID)

    require.Len(t, ApplyFilter(in, model.ReportFilter{}), 2)
}
