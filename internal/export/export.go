// Package export renders a finance report into downloadable files.  Every
// format is produced fully in memory before anything is handed back, so a
// failure never leaves a half-written download behind.
package export

import (
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// Format is an output file format.
type Format string

const (
    FormatCSV  Format = "csv"
    FormatPDF  Format = "pdf"
    FormatXLSX Format = "xlsx"
)

// Report names used as the filename prefix.
const (
    ReportFinanceiro    = "relatorio-financeiro"
    ReportParticipantes = "relatorio-participantes"
    ReportAnalitico     = "relatorio-analitico"
)

var (
    // ErrExportFailed is the only error callers see when rendering breaks.
    ErrExportFailed = errors.New("export failed")
    // ErrUnsupportedFormat is returned by ParseFormat.
    ErrUnsupportedFormat = errors.New("unsupported export format")
    // ErrUnknownReport is returned by ReportName.
    ErrUnknownReport = errors.New("unknown report")
)

// ParseFormat accepts csv, pdf and xlsx in any case.
func ParseFormat(s string) (Format, error) {
    switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
    case FormatCSV, FormatPDF, FormatXLSX:
        return f, nil
    }
    return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ReportName maps the short report kind used in query strings to its file
// prefix.  An empty kind means the financial report.
func ReportName(kind string) (string, error) {
    switch strings.ToLower(strings.TrimSpace(kind)) {
    case "", "financeiro":
        return ReportFinanceiro, nil
    case "participantes":
        return ReportParticipantes, nil
    case "analitico":
        return ReportAnalitico, nil
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownReport, kind)
}

// Section selects parts of a report.  Sections combine as bit flags.
type Section uint8

const (
    SectionSummary Section = 1 << iota
    SectionBrands
    SectionSeries
    SectionFunnel
    SectionTransactions
    SectionCustomers
    SectionInsights

    SectionAll = SectionSummary | SectionBrands | SectionSeries | SectionFunnel |
        SectionTransactions | SectionCustomers | SectionInsights
)

// SectionsFor returns the sections a named report contains.
func SectionsFor(name string) Section {
    switch name {
    case ReportParticipantes:
        return SectionSummary | SectionCustomers
    case ReportFinanceiro:
        return SectionSummary | SectionBrands | SectionSeries | SectionTransactions | SectionInsights
    }
    return SectionAll
}

// Bundle is everything an exporter may draw.  It is a read-only snapshot;
// exporters never modify it.
type Bundle struct {
    Name          string // report name, e.g. relatorio-financeiro
    Title         string
    GeneratedAt   time.Time
    Location      *time.Location // calendar for printed dates, nil means UTC
    Sections      Section        // zero means SectionsFor(Name)
    IncludeTrends bool           // PDF only: append the daily/weekly series

    Report    model.Report
    Funnel    model.Funnel
    Charges   []model.Charge
    Customers []model.Customer
    Insights  []string
}

func (b Bundle) has(s Section) bool {
    if b.Sections == 0 {
        return true
    }
    return b.Sections&s != 0
}

func (b Bundle) loc() *time.Location {
    if b.Location == nil {
        return time.UTC
    }
    return b.Location
}

// File is a rendered export.
type File struct {
    Name        string
    ContentType string
    Body        []byte
}

// Filename builds "<report-name>-<YYYY-MM-DD>.<ext>".
func Filename(name string, at time.Time, ext string) string {
    return fmt.Sprintf("%s-%s.%s", name, at.Format("2006-01-02"), ext)
}

// Render produces the file for format.  Any error or panic while rendering
// is reported as ErrExportFailed and no partial body is returned.
func Render(format Format, b Bundle) (out File, err error) {
    defer func() {
        if r := recover(); r != nil {
            out, err = File{}, fmt.Errorf("%w: %v", ErrExportFailed, r)
        }
    }()

    if b.Name == "" {
        b.Name = ReportFinanceiro
    }
    if b.Sections == 0 {
        b.Sections = SectionsFor(b.Name)
    }
    if b.GeneratedAt.IsZero() {
        b.GeneratedAt = time.Now()
    }
    at := b.GeneratedAt.In(b.loc())

    var body []byte
    var ctype string
    switch format {
    case FormatCSV:
        body, err = renderCSV(b)
        ctype = "text/csv; charset=utf-8"
    case FormatPDF:
        body, err = renderPDF(b)
        ctype = "application/pdf"
    case FormatXLSX:
        body, err = renderXLSX(b)
        ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
    default:
        return File{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
    }
    if err != nil {
        return File{}, fmt.Errorf("%w: %v", ErrExportFailed, err)
    }
    return File{Name: Filename(b.Name, at, string(format)), ContentType: ctype, Body: body}, nil
}
