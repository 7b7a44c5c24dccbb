package report

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
)

type fakeCharges struct {
    out []model.Charge
    err error
    got model.ReportFilter
}

func (f *fakeCharges) List(_ context.Context, flt model.ReportFilter) ([]model.Charge, error) {
    f.got = flt
    return f.out, f.err
}

type fakeRegs struct{ out []model.Registration }

func (f fakeRegs) List(context.Context, *time.Time, *time.Time) ([]model.Registration, error) {
    return f.out, nil
}

type fakePayouts struct {
    next     *model.Payout
    disputes int
}

func (f fakePayouts) Next(context.Context, string) (*model.Payout, error) { return f.next, nil }
func (f fakePayouts) Last(context.Context, string) (*model.Payout, error) { return nil, nil }
func (f fakePayouts) OpenDisputes(context.Context) (int, error)           { return f.disputes, nil }

func TestServiceBuild(t *testing.T) {
    a := charge("a", 10000, 300, model.ChargeSucceeded, day0)
    a.CustomerEmail, a.Lot = "ana@example.com", "lote1"
    b := charge("b", 5000, 150, model.ChargePending, day0)
    b.Lot = "lote2"
    arrival := day0.Add(72 * time.Hour)

    charges := &fakeCharges{out: []model.Charge{a, b}}
    svc := &Service{
        Charges:       charges,
        Registrations: fakeRegs{out: []model.Registration{{PaymentStatus: "completed"}, {PaymentStatus: "pending"}}},
        Payouts:       fakePayouts{next: &model.Payout{Amount: 9700, Currency: "brl", ArrivalDate: arrival}, disputes: 2},
        Location:      time.UTC,
        Currency:      "BRL",
    }

    full, err := svc.Build(context.Background(), model.ReportFilter{Lot: "lote1"})
    require.NoError(t, err)
    require.Equal(t, "BRL", charges.got.Currency)

    s := full.Report.Summary
    require.Equal(t, 1, s.Counted())
    require.Equal(t, int64(10000), s.Bruto)
    require.Equal(t, 2, s.Disputas)
    require.NotNil(t, s.ProximoPayout)
    require.Equal(t, int64(9700), s.ProximoPayout.Amount)
    require.Nil(t, s.UltimoPayout)

    require.Len(t, full.Charges, 1)
    require.Len(t, full.Customers, 1)
    require.Equal(t, 50.0, full.Funnel.TaxaConversao)
    require.NotEmpty(t, full.Insights)
}

func TestServiceBuildFailsOnStoreError(t *testing.T) {
    boom := errors.New("db down")
    svc := &Service{Charges: &fakeCharges{err: boom}}

    _, err := svc.Build(context.Background(), model.ReportFilter{})
    require.ErrorIs(t, err, boom)
}
