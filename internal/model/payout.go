package model

import "time"

// Payout is a settlement transfer of accumulated net revenue.
type Payout struct {
    ID          string    `json:"id"`
    Amount      int64     `json:"amount"`
    Currency    string    `json:"currency"`
    Status      string    `json:"status"` // in_transit | paid | failed | canceled
    ArrivalDate time.Time `json:"arrival_date"`
}

// OpenDisputeStatuses are the dispute states still awaiting resolution.
var OpenDisputeStatuses = []string{"warning_needs_response", "warning_under_review", "needs_response", "under_review"}
