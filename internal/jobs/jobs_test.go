package jobs

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/hibiken/asynq"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/queue"
    "github.com/iliyamo/civeni-admin/internal/realtime"
    "github.com/iliyamo/civeni-admin/internal/report"
)

var fixedNow = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

type fakeReports struct {
    got  []model.ReportFilter
    full report.Full
    err  error
}

func (f *fakeReports) Build(_ context.Context, filter model.ReportFilter) (report.Full, error) {
    f.got = append(f.got, filter)
    return f.full, f.err
}

type recPublisher struct{ keys []string }

func (p *recPublisher) Publish(_ context.Context, key string, _ any) error {
    p.keys = append(p.keys, key)
    return nil
}

type fakeTokens struct{ cutoff time.Time }

func (f *fakeTokens) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
    f.cutoff = cutoff
    return 4, nil
}

func sampleFull() report.Full {
    charges := []model.Charge{
        {ID: "ch_1", Created: fixedNow.Add(-time.Hour), Gross: 10000, Fee: 300, Net: 9700, Status: model.ChargeSucceeded, CustomerEmail: "ana@x.org", Brand: "visa"},
        {ID: "ch_2", Created: fixedNow.Add(-2 * time.Hour), Gross: 5000, Fee: 150, Net: 4850, Status: model.ChargePending, CustomerEmail: "bia@x.org"},
    }
    rep := report.Aggregate(charges, report.Options{End: fixedNow})
    return report.Full{Report: rep, Charges: charges, Customers: report.RollupCustomers(charges)}
}

func TestHandleFinanceSyncAnnounces(t *testing.T) {
    reports := &fakeReports{full: sampleFull()}
    pub := &recPublisher{}
    hub := realtime.NewHub(nil)
    var synced []realtime.Event
    hub.Subscribe(realtime.TopicFinanceSynced, func(e realtime.Event) { synced = append(synced, e) })

    w := &Worker{Reports: reports, Events: pub, Hub: hub, Now: func() time.Time { return fixedNow }}
    task, err := NewFinanceSyncTask(FinanceSyncPayload{Filter: Filter{Lot: "lote-1", Currency: "brl"}, RequestedBy: 7})
    require.NoError(t, err)
    require.Equal(t, TypeFinanceSync, task.Type())

    require.NoError(t, w.HandleFinanceSync(context.Background(), task))
    require.Len(t, reports.got, 1)
    require.Equal(t, "lote-1", reports.got[0].Lot)
    require.Equal(t, "BRL", reports.got[0].Currency)
    require.Equal(t, []string{queue.FinanceSyncedQueue}, pub.keys)
    require.Len(t, synced, 1)
    require.JSONEq(t, `{"charges":2,"bruto":15000,"liquido":14550,"synced_at":"2025-10-20T12:00:00Z"}`, string(synced[0].Payload))
}

func TestHandleFinanceSyncStoreError(t *testing.T) {
    boom := errors.New("db down")
    pub := &recPublisher{}
    w := &Worker{Reports: &fakeReports{err: boom}, Events: pub}
    task, err := NewFinanceSyncTask(FinanceSyncPayload{})
    require.NoError(t, err)

    require.ErrorIs(t, w.HandleFinanceSync(context.Background(), task), boom)
    require.Empty(t, pub.keys)
}

func TestHandleReportGenerateWritesFile(t *testing.T) {
    dir := t.TempDir()
    w := &Worker{Reports: &fakeReports{full: sampleFull()}, OutputDir: dir, Now: func() time.Time { return fixedNow }}

    task, err := NewReportTask(ReportPayload{Format: "csv", Report: "financeiro"})
    require.NoError(t, err)
    require.NoError(t, w.HandleReportGenerate(context.Background(), task))

    body, err := os.ReadFile(filepath.Join(dir, "relatorio-financeiro-2025-10-20.csv"))
    require.NoError(t, err)
    require.True(t, strings.HasPrefix(string(body), "\ufeff"))
    require.Contains(t, string(body), "ch_1")

    entries, err := os.ReadDir(dir)
    require.NoError(t, err)
    require.Len(t, entries, 1, "no temporary files left behind")
}

func TestHandleReportGenerateRejectsBadInput(t *testing.T) {
    w := &Worker{Reports: &fakeReports{}, OutputDir: t.TempDir()}

    task, err := NewReportTask(ReportPayload{Format: "docx"})
    require.NoError(t, err)
    require.ErrorIs(t, w.HandleReportGenerate(context.Background(), task), asynq.SkipRetry)

    task, err = NewReportTask(ReportPayload{Format: "pdf", Report: "mensal"})
    require.NoError(t, err)
    require.ErrorIs(t, w.HandleReportGenerate(context.Background(), task), asynq.SkipRetry)

    bad := asynq.NewTask(TypeReportGenerate, []byte("{"))
    require.ErrorIs(t, w.HandleReportGenerate(context.Background(), bad), asynq.SkipRetry)
}

func TestHandleTokenCleanup(t *testing.T) {
    tokens := &fakeTokens{}
    w := &Worker{Tokens: tokens, Now: func() time.Time { return fixedNow }}

    require.NoError(t, w.HandleTokenCleanup(context.Background(), NewTokenCleanupTask(24*time.Hour)))
    require.Equal(t, fixedNow.Add(-24*time.Hour), tokens.cutoff)
}

func TestNilClientIsDisabled(t *testing.T) {
    var e Enqueuer = NewClient(nil)
    task, err := NewFinanceSyncTask(FinanceSyncPayload{})
    require.NoError(t, err)
    _, err = e.Enqueue(context.Background(), task)
    require.ErrorIs(t, err, ErrJobsDisabled)
}

func TestFilterFromDropsPaging(t *testing.T) {
    from := fixedNow.Add(-48 * time.Hour)
    f := FilterFrom(model.ReportFilter{From: &from, Brand: "visa", Limit: 10, Offset: 20})
    m := f.model()
    require.Equal(t, &from, m.From)
    require.Equal(t, "visa", m.Brand)
    require.Zero(t, m.Limit)
    require.Zero(t, m.Offset)
}
