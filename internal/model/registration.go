package model

import "time"

// Registration is a conference sign-up.  Its payment status drives the
// conversion funnel; it is also the record the delete-customer RPC acts on.
type Registration struct {
    ID            string    `json:"id"`
    Email         string    `json:"email"`
    FullName      string    `json:"full_name"`
    PaymentStatus string    `json:"payment_status"`
    AmountPaid    int64     `json:"amount_paid"`
    Category      string    `json:"category"`
    Coupon        string    `json:"coupon"`
    CreatedAt     time.Time `json:"created_at"`
    UpdatedAt     time.Time `json:"updated_at"`
}
