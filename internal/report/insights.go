package report

import (
    "fmt"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// Insights writes short observations about a report in the dashboard's
// language.  Sentences may contain commas; exporters deal with that.
func Insights(r model.Report, f model.Funnel) []string {
    s := r.Summary
    out := []string{}
    if s.Counted() == 0 {
        return append(out, "Nenhuma transação no período selecionado.")
    }

    out = append(out, fmt.Sprintf("Taxa de conversão de %s%%, com %d pagamentos confirmados e %d pendentes.",
        decimal.NewFromFloat(s.TaxaConversao).StringFixed(2), s.Pagos, s.NaoPagos))
    if s.Pagos > 0 {
        out = append(out, fmt.Sprintf("Ticket médio de %s %s.", s.Currency, money(s.TicketMedio)))
    }
    if len(r.Brands) > 0 {
        b := r.Brands[0]
        out = append(out, fmt.Sprintf("Bandeira líder: %s (%s), com %s%% da receita bruta.",
            b.Brand, b.Funding, decimal.NewFromFloat(b.Percentage).StringFixed(2)))
    }
    if best, ok := bestDay(r.Daily); ok {
        out = append(out, fmt.Sprintf("Melhor dia: %s, com receita líquida de %s.", best.Label, money(best.Liquido)))
    }
    if s.Falhas > 0 || s.Reembolsos > 0 {
        out = append(out, fmt.Sprintf("%d falhas e %d reembolsos no período.", s.Falhas, s.Reembolsos))
    }
    if len(f.Stages) == 3 && f.Stages[0].Count > 0 {
        out = append(out, fmt.Sprintf("Funil: %d checkouts, %d pagamentos criados, %d confirmados.",
            f.Stages[0].Count, f.Stages[1].Count, f.Stages[2].Count))
    }
    return out
}

func bestDay(series []model.SeriesPoint) (model.SeriesPoint, bool) {
    var best model.SeriesPoint
    found := false
    for _, p := range series {
        if p.Transacoes == 0 {
            continue
        }
        if !found || p.Liquido > best.Liquido {
            best, found = p, true
        }
    }
    return best, found
}

func money(cents int64) string {
    return decimal.New(cents, -2).StringFixed(2)
}
