package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/export"
    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/report"
)

// ReportBuilder builds the full dashboard snapshot for a filter.
type ReportBuilder interface {
    Build(ctx context.Context, f model.ReportFilter) (report.Full, error)
}

// ChargePager pages raw charges, newest first.
type ChargePager interface {
    Page(ctx context.Context, f model.ReportFilter) (model.Page[model.Charge], error)
}

// FinanceHandler serves the read side of the finance dashboard and its
// exports.  Every endpoint takes the same filter query parameters.
type FinanceHandler struct {
    Reports  ReportBuilder
    Pager    ChargePager
    Location *time.Location
    Currency string
    Log      *logrus.Logger
}

var errBadFilter = errors.New("invalid filter")

// parseFilter reads the dashboard filter from the query string.  Dates are
// YYYY-MM-DD (calendar days in the report location, `to` inclusive) or
// RFC 3339 instants.
func (h *FinanceHandler) parseFilter(c echo.Context) (model.ReportFilter, error) {
    loc := h.Location
    if loc == nil {
        loc = time.UTC
    }
    var f model.ReportFilter

    if s := strings.TrimSpace(c.QueryParam("from")); s != "" {
        t, err := parseDate(s, loc, false)
        if err != nil {
            return f, fmt.Errorf("%w: from: %v", errBadFilter, err)
        }
        f.From = &t
    }
    if s := strings.TrimSpace(c.QueryParam("to")); s != "" {
        t, err := parseDate(s, loc, true)
        if err != nil {
            return f, fmt.Errorf("%w: to: %v", errBadFilter, err)
        }
        f.To = &t
    }
    if f.From != nil && f.To != nil && f.To.Before(*f.From) {
        return f, fmt.Errorf("%w: to before from", errBadFilter)
    }

    f.Status = strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
    switch f.Status {
    case "", "all":
        f.Status = ""
    case model.ChargeSucceeded, model.ChargePending, model.ChargeFailed, model.ChargeRefunded:
    default:
        return f, fmt.Errorf("%w: status %q", errBadFilter, f.Status)
    }
    f.Lot = strings.TrimSpace(c.QueryParam("lot"))
    f.Coupon = strings.TrimSpace(c.QueryParam("coupon"))
    f.Brand = strings.ToLower(strings.TrimSpace(c.QueryParam("brand")))
    f.Currency = strings.ToUpper(strings.TrimSpace(c.QueryParam("currency")))
    if f.Currency == "" {
        f.Currency = h.Currency
    }
    f.Search = strings.TrimSpace(c.QueryParam("q"))
    if f.Search == "" {
        f.Search = strings.TrimSpace(c.QueryParam("search"))
    }

    limit, offset := 0, 0
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 0 {
            return f, fmt.Errorf("%w: limit", errBadFilter)
        }
        limit = n
    }
    if s := c.QueryParam("offset"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 0 {
            return f, fmt.Errorf("%w: offset", errBadFilter)
        }
        offset = n
    }
    return f.WithPage(limit, offset), nil
}

func parseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t.UTC(), nil
    }
    d, err := time.ParseInLocation("2006-01-02", s, loc)
    if err != nil {
        return time.Time{}, err
    }
    if endOfDay {
        d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
    }
    return d.UTC(), nil
}

func (h *FinanceHandler) badFilter(c echo.Context, err error) error {
    return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// build parses the filter and builds the snapshot; on failure the response
// has already been written and ok is false.
func (h *FinanceHandler) build(c echo.Context, funcName string) (full report.Full, f model.ReportFilter, ok bool, err error) {
    f, err = h.parseFilter(c)
    if err != nil {
        return full, f, false, h.badFilter(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
    defer cancel()
    full, err = h.Reports.Build(ctx, f)
    if err != nil {
        return full, f, false, respondError(c, h.Log, funcName, err)
    }
    return full, f, true, nil
}

// Summary returns the executive summary.
func (h *FinanceHandler) Summary(c echo.Context) error {
    full, _, ok, err := h.build(c, "Summary")
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, full.Report.Summary)
}

// TimeSeries returns the daily or weekly revenue series.
func (h *FinanceHandler) TimeSeries(c echo.Context) error {
    gran := strings.ToLower(c.QueryParam("granularity"))
    if gran == "" {
        gran = "day"
    }
    if gran != "day" && gran != "week" {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "granularity must be day or week"})
    }
    full, _, ok, err := h.build(c, "TimeSeries")
    if !ok {
        return err
    }
    points := full.Report.Daily
    if gran == "week" {
        points = full.Report.Weekly
    }
    if points == nil {
        points = []model.SeriesPoint{}
    }
    return c.JSON(http.StatusOK, map[string]any{"granularity": gran, "points": points})
}

// ByBrand returns revenue per (brand, funding).
func (h *FinanceHandler) ByBrand(c echo.Context) error {
    full, _, ok, err := h.build(c, "ByBrand")
    if !ok {
        return err
    }
    brands := full.Report.Brands
    if brands == nil {
        brands = []model.BrandBreakdown{}
    }
    return c.JSON(http.StatusOK, brands)
}

// Funnel returns the registration conversion funnel.
func (h *FinanceHandler) Funnel(c echo.Context) error {
    full, _, ok, err := h.build(c, "Funnel")
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, full.Funnel)
}

// Charges returns one page of raw charges with the total count.
func (h *FinanceHandler) Charges(c echo.Context) error {
    f, err := h.parseFilter(c)
    if err != nil {
        return h.badFilter(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()
    page, err := h.Pager.Page(ctx, f)
    if err != nil {
        return respondError(c, h.Log, "Charges", err)
    }
    return c.JSON(http.StatusOK, page)
}

// Customers returns one page of participants rolled up from their charges.
func (h *FinanceHandler) Customers(c echo.Context) error {
    full, f, ok, err := h.build(c, "Customers")
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, model.Paginate(full.Customers, f.Limit, f.Offset))
}

// Report returns the whole snapshot at once.
func (h *FinanceHandler) Report(c echo.Context) error {
    full, _, ok, err := h.build(c, "Report")
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, full)
}

// Export renders the snapshot as a file download.  The file is complete in
// memory before the first byte is written.
func (h *FinanceHandler) Export(c echo.Context) error {
    format, err := export.ParseFormat(c.QueryParam("format"))
    if err != nil {
        return respondError(c, h.Log, "Export", err)
    }
    name, err := export.ReportName(c.QueryParam("report"))
    if err != nil {
        return respondError(c, h.Log, "Export", err)
    }
    trends, _ := strconv.ParseBool(c.QueryParam("include_trends"))

    full, _, ok, err := h.build(c, "Export")
    if !ok {
        return err
    }
    file, err := export.Render(format, export.Bundle{
        Name:          name,
        Title:         c.QueryParam("title"),
        GeneratedAt:   time.Now(),
        Location:      h.Location,
        IncludeTrends: trends,
        Report:        full.Report,
        Funnel:        full.Funnel,
        Charges:       full.Charges,
        Customers:     full.Customers,
        Insights:      full.Insights,
    })
    if err != nil {
        return respondError(c, h.Log, "Export", err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
    c.Response().Header().Set("Cache-Control", "no-store")
    return c.Blob(http.StatusOK, file.ContentType, file.Body)
}
