// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// Queue names.  Routing keys equal queue names on the default exchange.
const (
    PayoutQueue            = "finance.payouts"
    FinanceSyncedQueue     = "finance.synced"
    ScheduleReorderedQueue = "schedule.reordered"
)

// PayoutEvent is pushed by the payment webhook bridge whenever a payout is
// created or changes status.  ArrivalDate is a Unix timestamp, as the
// provider sends it.
type PayoutEvent struct {
    ID          string `json:"id"`
    Amount      int64  `json:"amount"`
    Currency    string `json:"currency"`
    Status      string `json:"status"`
    ArrivalDate int64  `json:"arrival_date"`
}

var errBadPayout = errors.New("payout event without id or status")

// Payout validates the event and converts it to the stored model.
func (e PayoutEvent) Payout() (model.Payout, error) {
    if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Status) == "" {
        return model.Payout{}, errBadPayout
    }
    return model.Payout{
        ID:          e.ID,
        Amount:      e.Amount,
        Currency:    strings.ToLower(e.Currency),
        Status:      e.Status,
        ArrivalDate: time.Unix(e.ArrivalDate, 0).UTC(),
    }, nil
}

// ScheduleReorderedEvent is published after a day's sessions were re-ranked.
// It carries the full new order so the public site can refresh its cache
// without querying.
type ScheduleReorderedEvent struct {
    DayID       string   `json:"day_id"`
    SessionIDs  []string `json:"session_ids"`
    Changed     int      `json:"changed"`
    ReorderedAt string   `json:"reordered_at"`
}

// FinanceSyncedEvent is published when the finance sync job finishes.
type FinanceSyncedEvent struct {
    Charges  int    `json:"charges"`
    Bruto    int64  `json:"bruto"`
    Liquido  int64  `json:"liquido"`
    SyncedAt string `json:"synced_at"`
}
