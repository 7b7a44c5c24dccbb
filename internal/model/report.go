package model

import "time"

// Summary is the executive view of a set of charges.  Money is in minor
// units; TaxaConversao is a percentage rounded to two decimals.  Field names
// follow the dashboard's vocabulary.
type Summary struct {
    Bruto         int64       `json:"bruto"`
    Taxas         int64       `json:"taxas"`
    Liquido       int64       `json:"liquido"`
    Pagos         int         `json:"pagos"`
    NaoPagos      int         `json:"nao_pagos"`
    Falhas        int         `json:"falhas"`
    Reembolsos    int         `json:"reembolsos"`
    Disputas      int         `json:"disputas"`
    TicketMedio   int64       `json:"ticket_medio"`
    TaxaConversao float64     `json:"taxa_conversao"`
    Currency      string      `json:"currency"`
    ProximoPayout *PayoutInfo `json:"proximo_payout"`
    UltimoPayout  *PayoutInfo `json:"ultimo_payout"`
}

// Counted is the number of charges the summary classified.
func (s Summary) Counted() int { return s.Pagos + s.NaoPagos + s.Falhas + s.Reembolsos }

// PayoutInfo is the slim payout view attached to a summary.
type PayoutInfo struct {
    Date     time.Time `json:"data"`
    Amount   int64     `json:"valor"`
    Currency string    `json:"moeda"`
}

// SeriesPoint is one calendar bucket of the revenue time series.
type SeriesPoint struct {
    Start      time.Time `json:"start"`
    End        time.Time `json:"end"`
    Label      string    `json:"label"`
    Bruto      int64     `json:"receita_bruta"`
    Taxas      int64     `json:"taxas"`
    Liquido    int64     `json:"receita_liquida"`
    Transacoes int       `json:"transacoes"`
    Pagos      int       `json:"pagos"`
    NaoPagos   int       `json:"nao_pagos"`
}

// BrandBreakdown groups revenue by (brand, funding) pair.
type BrandBreakdown struct {
    Brand      string  `json:"bandeira"`
    Funding    string  `json:"funding"`
    Count      int     `json:"qtd"`
    Bruto      int64   `json:"receita_bruta"`
    Liquido    int64   `json:"receita_liquida"`
    Percentage float64 `json:"percentual"`
}

// FunnelStage is one step of the conversion pipeline.
type FunnelStage struct {
    Step       string  `json:"step"`
    Count      int     `json:"count"`
    Value      int64   `json:"value"`
    Percentage float64 `json:"percentage"`
}

// Funnel is the full conversion pipeline with the end-to-end rate.
type Funnel struct {
    Stages        []FunnelStage `json:"steps"`
    TaxaConversao float64       `json:"taxa_conversao"`
}

// Customer is a participant rolled up from their charges.  It is derived on
// demand and never stored.
type Customer struct {
    Email          string    `json:"email"`
    Name           string    `json:"nome"`
    TotalSpent     int64     `json:"total_gasto"`
    Payments       int       `json:"pagamentos"`
    Refunds        int       `json:"reembolsos"`
    RefundedAmount int64     `json:"reembolsos_valor"`
    FirstPayment   time.Time `json:"primeiro_pagamento"`
    LastPayment    time.Time `json:"ultimo_pagamento"`
    Methods        []string  `json:"formas_pagamento"`
    CardBrand      string    `json:"card_brand,omitempty"`
    Last4          string    `json:"last4,omitempty"`
}

// Report is everything the dashboard draws for one filter.
type Report struct {
    Summary Summary          `json:"summary"`
    Daily   []SeriesPoint    `json:"daily"`
    Weekly  []SeriesPoint    `json:"weekly"`
    Brands  []BrandBreakdown `json:"brands"`
}
