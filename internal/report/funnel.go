package report

import (
    "strings"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// Funnel stage names as shown on the dashboard.
const (
    StageCheckout  = "Checkout Iniciado"
    StageCreated   = "Pagamento Criado"
    StageConfirmed = "Pagamento Confirmado"
)

// paymentCreated reports whether a registration reached the payment step.
func paymentCreated(status string) bool {
    switch strings.ToLower(status) {
    case "pending", "started", "processing", "completed":
        return true
    }
    return false
}

func paymentConfirmed(status string) bool {
    return strings.EqualFold(status, "completed")
}

// BuildFunnel counts registrations through checkout → payment created →
// payment confirmed.  Stage percentages are relative to the first stage and
// the value of a stage is the amount paid by its registrations.
func BuildFunnel(regs []model.Registration) model.Funnel {
    var checkout, created, confirmed model.FunnelStage
    checkout.Step, created.Step, confirmed.Step = StageCheckout, StageCreated, StageConfirmed

    for _, r := range regs {
        checkout.Count++
        checkout.Value += r.AmountPaid
        if paymentCreated(r.PaymentStatus) {
            created.Count++
            created.Value += r.AmountPaid
        }
        if paymentConfirmed(r.PaymentStatus) {
            confirmed.Count++
            confirmed.Value += r.AmountPaid
        }
    }

    total := int64(checkout.Count)
    if total > 0 {
        checkout.Percentage = 100
    }
    created.Percentage = percent(int64(created.Count), total)
    confirmed.Percentage = percent(int64(confirmed.Count), total)

    return model.Funnel{
        Stages:        []model.FunnelStage{checkout, created, confirmed},
        TaxaConversao: confirmed.Percentage,
    }
}
