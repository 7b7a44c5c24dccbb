// Package jobs runs the slow side effects behind the admin RPC endpoints on
// asynq workers: the finance sync, scheduled report files and the refresh
// token cleanup.
package jobs

import (
    "encoding/json"
    "strings"
    "time"

    "github.com/hibiken/asynq"

    "github.com/iliyamo/civeni-admin/internal/model"
)

const (
    TypeFinanceSync    = "finance:sync"
    TypeReportGenerate = "report:generate"
    TypeTokenCleanup   = "auth:token-cleanup"

    QueueDefault = "default"
    QueueReports = "reports"
)

// Filter is the wire form of model.ReportFilter inside task payloads.
type Filter struct {
    From     *time.Time `json:"from,omitempty"`
    To       *time.Time `json:"to,omitempty"`
    Status   string     `json:"status,omitempty"`
    Lot      string     `json:"lot,omitempty"`
    Coupon   string     `json:"coupon,omitempty"`
    Brand    string     `json:"brand,omitempty"`
    Currency string     `json:"currency,omitempty"`
    Search   string     `json:"search,omitempty"`
}

// FilterFrom copies the matching fields of f; paging is dropped.
func FilterFrom(f model.ReportFilter) Filter {
    return Filter{
        From: f.From, To: f.To,
        Status: f.Status, Lot: f.Lot, Coupon: f.Coupon, Brand: f.Brand,
        Currency: f.Currency, Search: f.Search,
    }
}

func (f Filter) model() model.ReportFilter {
    return model.ReportFilter{
        From: f.From, To: f.To,
        Status: f.Status, Lot: f.Lot, Coupon: f.Coupon, Brand: f.Brand,
        Currency: strings.ToUpper(f.Currency), Search: f.Search,
    }
}

// FinanceSyncPayload asks for the dashboard numbers to be rebuilt.
type FinanceSyncPayload struct {
    Filter      Filter `json:"filter"`
    RequestedBy uint64 `json:"requested_by,omitempty"`
}

// ReportPayload asks for a report file to be rendered to the output dir.
type ReportPayload struct {
    Format        string `json:"format"`
    Report        string `json:"report"` // financeiro | participantes | analitico
    IncludeTrends bool   `json:"include_trends,omitempty"`
    Filter        Filter `json:"filter"`
    RequestedBy   uint64 `json:"requested_by,omitempty"`
}

// TokenCleanupPayload removes refresh tokens that expired more than Grace ago.
type TokenCleanupPayload struct {
    Grace time.Duration `json:"grace"`
}

func NewFinanceSyncTask(p FinanceSyncPayload) (*asynq.Task, error) {
    payload, err := json.Marshal(p)
    if err != nil {
        return nil, err
    }
    // one sync at a time is enough; duplicates within a minute are dropped
    return asynq.NewTask(TypeFinanceSync, payload,
        asynq.MaxRetry(3),
        asynq.Timeout(2*time.Minute),
        asynq.Unique(time.Minute),
        asynq.Queue(QueueDefault)), nil
}

func NewReportTask(p ReportPayload) (*asynq.Task, error) {
    payload, err := json.Marshal(p)
    if err != nil {
        return nil, err
    }
    return asynq.NewTask(TypeReportGenerate, payload,
        asynq.MaxRetry(3),
        asynq.Timeout(5*time.Minute),
        asynq.Queue(QueueReports)), nil
}

func NewTokenCleanupTask(grace time.Duration) *asynq.Task {
    payload, _ := json.Marshal(TokenCleanupPayload{Grace: grace})
    return asynq.NewTask(TypeTokenCleanup, payload,
        asynq.MaxRetry(1),
        asynq.Queue(QueueDefault))
}
