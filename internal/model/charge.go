package model

import "time"

// Charge statuses as reported by the payment provider.
const (
    ChargeSucceeded = "succeeded"
    ChargePending   = "pending"
    ChargeFailed    = "failed"
    ChargeRefunded  = "refunded"
)

// Charge is one payment attempt for a registration.  Amounts are integer
// minor units (centavos).  Fee and Net are already resolved through
// ResolveAmounts by the repository, so consumers never see a missing value.
//
// Fields:
//  ID              – provider charge id.
//  PaymentIntentID – provider payment intent the charge belongs to.
//  Created         – creation instant (UTC).
//  Gross           – stored charge amount.
//  Fee             – provider fee, 0 when not reported.
//  Net             – provider net, or Gross-Fee when not reported.
//  Status          – succeeded | pending | failed | refunded.
//  Lot, Coupon     – registration metadata used by report filters.
type Charge struct {
    ID              string    `json:"id"`
    PaymentIntentID string    `json:"payment_intent_id"`
    Created         time.Time `json:"created"`
    Gross           int64     `json:"gross"`
    Fee             int64     `json:"fee"`
    Net             int64     `json:"net"`
    Currency        string    `json:"currency"`
    Status          string    `json:"status"`
    Paid            bool      `json:"paid"`
    FailureCode     string    `json:"failure_code,omitempty"`
    RefundedAmount  int64     `json:"refunded_amount"`
    CustomerEmail   string    `json:"customer_email"`
    CustomerName    string    `json:"customer_name"`
    Brand           string    `json:"brand"`
    Funding         string    `json:"funding"`
    Last4           string    `json:"last4"`
    ExpMonth        int       `json:"exp_month,omitempty"`
    ExpYear         int       `json:"exp_year,omitempty"`
    Lot             string    `json:"lot"`
    Coupon          string    `json:"coupon"`
}

// ResolveAmounts applies the fee/net fallback rules in one place: a missing
// fee counts as zero and a reported net always wins over gross-fee.
func ResolveAmounts(gross int64, fee, net *int64) (int64, int64) {
    f := int64(0)
    if fee != nil {
        f = *fee
    }
    if net != nil {
        return f, *net
    }
    return f, gross - f
}

// IsPaid reports whether the charge counts as a confirmed payment.
func (c Charge) IsPaid() bool { return c.Status == ChargeSucceeded }

// BrandOrUnknown and FundingOrUnknown keep empty card metadata groupable.
func (c Charge) BrandOrUnknown() string {
    if c.Brand == "" {
        return "unknown"
    }
    return c.Brand
}

func (c Charge) FundingOrUnknown() string {
    if c.Funding == "" {
        return "unknown"
    }
    return c.Funding
}
