package config

import (
    "log"
    "time"
)

// ReportConfig groups the knobs of the finance reports and exports.
type ReportConfig struct {
    Location       *time.Location // calendar used to bucket charges into days
    Currency       string         // default currency filter (upper case)
    OutputDir      string         // where scheduled reports are written
    SlugPresencial string         // event slug of the in-person programme
    SlugOnline     string         // event slug of the online programme
    SlowThreshold  time.Duration  // reports slower than this are logged
}

// LoadReportConfig reads REPORT_* variables.  An unknown timezone falls back
// to UTC with a warning instead of aborting startup.
func LoadReportConfig() ReportConfig {
    tz := envStr("REPORT_TIMEZONE", "America/Fortaleza")
    loc, err := time.LoadLocation(tz)
    if err != nil {
        log.Printf("config: unknown REPORT_TIMEZONE %q, using UTC", tz)
        loc = time.UTC
    }
    return ReportConfig{
        Location:       loc,
        Currency:       envStr("REPORT_CURRENCY", "BRL"),
        OutputDir:      envStr("REPORT_OUTPUT_DIR", "reports"),
        SlugPresencial: envStr("REPORT_EVENT_SLUG_PRESENCIAL", "iii-civeni-2025"),
        SlugOnline:     envStr("REPORT_EVENT_SLUG_ONLINE", "iii-civeni-2025-online"),
        SlowThreshold:  envDur("REPORT_SLOW_THRESHOLD", 500*time.Millisecond),
    }
}

// EventSlug maps the dashboard's programme type to its event slug.
func (r ReportConfig) EventSlug(kind string) string {
    if kind == "online" {
        return r.SlugOnline
    }
    return r.SlugPresencial
}

// JobsConfig controls the asynq worker that runs background RPC jobs.
type JobsConfig struct {
    Enabled     bool
    Concurrency int
    MaxRetry    int
}

func LoadJobsConfig() JobsConfig {
    cfg := JobsConfig{
        Enabled:     envBool("JOBS_ENABLED", true),
        Concurrency: envInt("JOBS_CONCURRENCY", 4),
        MaxRetry:    envInt("JOBS_MAX_RETRY", 3),
    }
    if cfg.Concurrency < 1 { cfg.Concurrency = 1 }
    if cfg.MaxRetry < 0 { cfg.MaxRetry = 0 }
    return cfg
}
