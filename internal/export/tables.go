package export

import (
    "fmt"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// table is the format-neutral shape every exporter draws from.  Cells are
// strings or ints; money is already a two-decimal string.
type table struct {
    title  string // section label
    sheet  string // worksheet name, ASCII and at most 31 chars
    header []string
    rows   [][]any
}

const dateTimeLayout = "02/01/2006 15:04"

// Money formats minor units as a two-decimal string ("123.45").
func Money(cents int64) string {
    return decimal.New(cents, -2).StringFixed(2)
}

func pct(v float64) string {
    return decimal.NewFromFloat(v).StringFixed(2)
}

func statusLabel(s string) string {
    switch s {
    case model.ChargeSucceeded:
        return "Pago"
    case model.ChargePending:
        return "Pendente"
    case model.ChargeFailed:
        return "Falhou"
    case model.ChargeRefunded:
        return "Reembolsado"
    }
    return s
}

func stamp(t time.Time, loc *time.Location) string {
    if t.IsZero() {
        return ""
    }
    return t.In(loc).Format(dateTimeLayout)
}

func summaryTable(b Bundle) table {
    s := b.Report.Summary
    payout := func(p *model.PayoutInfo) (string, string) {
        if p == nil {
            return Money(0), ""
        }
        return Money(p.Amount), p.Date.In(b.loc()).Format("02/01/2006")
    }
    nextAmt, nextDate := payout(s.ProximoPayout)
    lastAmt, lastDate := payout(s.UltimoPayout)

    return table{
        title:  "Resumo Executivo",
        sheet:  "Resumo",
        header: []string{"Indicador", "Valor"},
        rows: [][]any{
            {"Receita Bruta", Money(s.Bruto)},
            {"Taxas", Money(s.Taxas)},
            {"Receita Líquida", Money(s.Liquido)},
            {"Pagamentos Confirmados", s.Pagos},
            {"Pagamentos Pendentes", s.NaoPagos},
            {"Falhas", s.Falhas},
            {"Reembolsos", s.Reembolsos},
            {"Disputas Abertas", s.Disputas},
            {"Ticket Médio", Money(s.TicketMedio)},
            {"Taxa de Conversão (%)", pct(s.TaxaConversao)},
            {"Moeda", strings.ToUpper(s.Currency)},
            {"Próximo Payout", nextAmt},
            {"Data do Próximo Payout", nextDate},
            {"Último Payout", lastAmt},
            {"Data do Último Payout", lastDate},
        },
    }
}

func brandsTable(b Bundle) table {
    t := table{
        title:  "Bandeiras",
        sheet:  "Bandeiras",
        header: []string{"Bandeira", "Funding", "Quantidade", "Receita Bruta", "Receita Líquida", "Percentual (%)"},
    }
    for _, x := range b.Report.Brands {
        t.rows = append(t.rows, []any{x.Brand, x.Funding, x.Count, Money(x.Bruto), Money(x.Liquido), pct(x.Percentage)})
    }
    return t
}

func seriesTable(title, sheet, period string, points []model.SeriesPoint) table {
    t := table{
        title:  title,
        sheet:  sheet,
        header: []string{period, "Transações", "Pagos", "Pendentes", "Receita Bruta", "Taxas", "Receita Líquida"},
    }
    for _, p := range points {
        t.rows = append(t.rows, []any{p.Label, p.Transacoes, p.Pagos, p.NaoPagos, Money(p.Bruto), Money(p.Taxas), Money(p.Liquido)})
    }
    return t
}

func dailyTable(b Bundle) table {
    return seriesTable("Série Temporal Diária", "Serie Diaria", "Dia", b.Report.Daily)
}

func weeklyTable(b Bundle) table {
    return seriesTable("Série Temporal Semanal", "Serie Semanal", "Semana", b.Report.Weekly)
}

func funnelTable(b Bundle) table {
    t := table{
        title:  "Funil",
        sheet:  "Funil",
        header: []string{"Etapa", "Quantidade", "Valor", "Percentual (%)"},
    }
    for _, s := range b.Funnel.Stages {
        t.rows = append(t.rows, []any{s.Step, s.Count, Money(s.Value), pct(s.Percentage)})
    }
    return t
}

func transactionsTable(b Bundle) table {
    t := table{
        title:  "Transações",
        sheet:  "Transacoes",
        header: []string{"Data", "ID", "Cliente", "Email", "Status", "Bandeira", "Final", "Bruto", "Taxa", "Líquido", "Lote", "Cupom"},
    }
    for _, c := range b.Charges {
        t.rows = append(t.rows, []any{
            stamp(c.Created, b.loc()), c.ID, c.CustomerName, c.CustomerEmail, statusLabel(c.Status),
            c.Brand, c.Last4, Money(c.Gross), Money(c.Fee), Money(c.Net), c.Lot, c.Coupon,
        })
    }
    return t
}

func customersTable(b Bundle) table {
    t := table{
        title:  "Participantes",
        sheet:  "Participantes",
        header: []string{"Nome", "Email", "Total Gasto", "Pagamentos", "Reembolsos", "Valor Reembolsado", "Primeiro Pagamento", "Último Pagamento", "Formas de Pagamento"},
    }
    for _, c := range b.Customers {
        t.rows = append(t.rows, []any{
            c.Name, c.Email, Money(c.TotalSpent), c.Payments, c.Refunds, Money(c.RefundedAmount),
            stamp(c.FirstPayment, b.loc()), stamp(c.LastPayment, b.loc()), strings.Join(c.Methods, " / "),
        })
    }
    return t
}

func insightsTable(b Bundle) table {
    t := table{title: "Insights", sheet: "Insights", header: []string{"Observação"}}
    for _, s := range b.Insights {
        t.rows = append(t.rows, []any{s})
    }
    return t
}

// sectionTables returns the tables for the bundle's sections in the
// CSV/XLSX order.
func sectionTables(b Bundle) []table {
    var out []table
    if b.has(SectionSummary) {
        out = append(out, summaryTable(b))
    }
    if b.has(SectionBrands) {
        out = append(out, brandsTable(b))
    }
    if b.has(SectionSeries) {
        out = append(out, dailyTable(b), weeklyTable(b))
    }
    if b.has(SectionFunnel) {
        out = append(out, funnelTable(b))
    }
    if b.has(SectionTransactions) {
        out = append(out, transactionsTable(b))
    }
    if b.has(SectionCustomers) {
        out = append(out, customersTable(b))
    }
    if b.has(SectionInsights) {
        out = append(out, insightsTable(b))
    }
    return out
}

func cellText(v any) string {
    switch x := v.(type) {
    case nil:
        return ""
    case string:
        return x
    }
    return fmt.Sprint(v)
}
