package export

import (
    "bytes"
    "fmt"

    "github.com/go-pdf/fpdf"
    "github.com/shopspring/decimal"
)

const (
    pdfFont      = "Helvetica"
    pdfFontSize  = 8.0
    pdfRowHeight = 6.0
    pdfCellPad   = 1.5
    pdfMaxColumn = 70.0 // widest a column may measure before scaling, mm
)

// pdfTables lists the PDF sections in print order: transactions, customers,
// brand analysis, then the optional trends.
func pdfTables(b Bundle) []table {
    var out []table
    if b.has(SectionTransactions) {
        out = append(out, transactionsTable(b))
    }
    if b.has(SectionCustomers) {
        out = append(out, customersTable(b))
    }
    if b.has(SectionBrands) {
        out = append(out, brandsTable(b))
    }
    if b.IncludeTrends && b.has(SectionSeries) {
        out = append(out, dailyTable(b), weeklyTable(b))
    }
    return out
}

// renderPDF draws a landscape A4 document with one bordered table per
// section.  Page breaks are handled here so the header row repeats on every
// page a table spans.
func renderPDF(b Bundle) ([]byte, error) {
    pdf := fpdf.New("L", "mm", "A4", "")
    pdf.SetMargins(10, 12, 10)
    pdf.SetAutoPageBreak(false, 12)
    tr := pdf.UnicodeTranslatorFromDescriptor("")

    title := b.Title
    if title == "" {
        title = "Relatório Financeiro"
    }
    pdf.SetTitle(title, true)
    pdf.SetCreator("civeni-admin", true)
    pdf.AddPage()

    pdf.SetFont(pdfFont, "B", 14)
    pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
    pdf.SetFont(pdfFont, "", 9)
    pdf.CellFormat(0, 5, tr("Gerado em "+stamp(b.GeneratedAt, b.loc())), "", 1, "L", false, 0, "")
    if b.has(SectionSummary) {
        s := b.Report.Summary
        line := fmt.Sprintf("Receita bruta %s | Receita líquida %s | Pagos %d | Pendentes %d | Conversão %s%%",
            Money(s.Bruto), Money(s.Liquido), s.Pagos, s.NaoPagos, pct(s.TaxaConversao))
        pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
    }
    pdf.Ln(3)

    for _, t := range pdfTables(b) {
        drawTable(pdf, tr, t)
    }

    var buf bytes.Buffer
    if err := pdf.Output(&buf); err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}

func drawTable(pdf *fpdf.Fpdf, tr func(string) string, t table) {
    left, _, right, bottom := pdf.GetMargins()
    pageW, pageH := pdf.GetPageSize()
    limit := pageH - bottom

    // title, header and at least one row stay together
    if pdf.GetY()+8+2*pdfRowHeight > limit {
        pdf.AddPage()
    }
    pdf.SetFont(pdfFont, "B", 11)
    pdf.CellFormat(0, 8, tr(t.title), "", 1, "L", false, 0, "")

    widths := columnWidths(pdf, tr, t, pageW-left-right)
    header := func() {
        pdf.SetFont(pdfFont, "B", pdfFontSize)
        pdf.SetFillColor(230, 230, 235)
        for i, h := range t.header {
            pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(h), widths[i]), "1", 0, "C", true, 0, "")
        }
        pdf.Ln(pdfRowHeight)
        pdf.SetFont(pdfFont, "", pdfFontSize)
    }
    header()

    if len(t.rows) == 0 {
        pdf.CellFormat(pageW-left-right, pdfRowHeight, tr("Sem registros"), "1", 1, "C", false, 0, "")
    }
    for _, row := range t.rows {
        if pdf.GetY()+pdfRowHeight > limit {
            pdf.AddPage()
            header()
        }
        for i, v := range row {
            s := cellText(v)
            align := "L"
            if _, err := decimal.NewFromString(s); err == nil {
                align = "R"
            }
            pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(s), widths[i]), "1", 0, align, false, 0, "")
        }
        pdf.Ln(pdfRowHeight)
    }
    pdf.Ln(4)
}

// columnWidths measures the widest header and cell of every column, caps it,
// and scales the result so the table spans exactly the printable width.
func columnWidths(pdf *fpdf.Fpdf, tr func(string) string, t table, avail float64) []float64 {
    widths := make([]float64, len(t.header))

    pdf.SetFont(pdfFont, "B", pdfFontSize)
    for i, h := range t.header {
        widths[i] = pdf.GetStringWidth(tr(h))
    }
    pdf.SetFont(pdfFont, "", pdfFontSize)
    for _, row := range t.rows {
        for i, v := range row {
            if i >= len(widths) {
                break
            }
            if w := pdf.GetStringWidth(tr(cellText(v))); w > widths[i] {
                widths[i] = w
            }
        }
    }

    var total float64
    for i := range widths {
        widths[i] += 2 * pdfCellPad
        if widths[i] > pdfMaxColumn {
            widths[i] = pdfMaxColumn
        }
        total += widths[i]
    }
    if total == 0 {
        return widths
    }
    k := avail / total
    for i := range widths {
        widths[i] *= k
    }
    return widths
}

// fit truncates s (already translated to the PDF code page, one byte per
// glyph) so it fits in a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
    room := w - 2*pdfCellPad
    if pdf.GetStringWidth(s) <= room {
        return s
    }
    for len(s) > 0 && pdf.GetStringWidth(s+"...") > room {
        s = s[:len(s)-1]
    }
    return s + "..."
}
