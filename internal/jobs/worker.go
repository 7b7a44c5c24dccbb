package jobs

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/hibiken/asynq"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/export"
    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/queue"
    "github.com/iliyamo/civeni-admin/internal/realtime"
    "github.com/iliyamo/civeni-admin/internal/report"
)

// ReportBuilder builds a full dashboard snapshot for a filter.
type ReportBuilder interface {
    Build(ctx context.Context, f model.ReportFilter) (report.Full, error)
}

// TokenCleaner drops expired refresh tokens.
type TokenCleaner interface {
    DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher forwards events to the broker.
type EventPublisher interface {
    Publish(ctx context.Context, routingKey string, event any) error
}

// Worker holds the handlers of every task type.
type Worker struct {
    Reports   ReportBuilder
    Tokens    TokenCleaner   // optional
    Events    EventPublisher // optional
    Hub       *realtime.Hub  // optional
    OutputDir string
    Location  *time.Location
    Log       *logrus.Logger
    Now       func() time.Time
}

func (w *Worker) now() time.Time {
    if w.Now != nil {
        return w.Now()
    }
    return time.Now()
}

func (w *Worker) logger(t *asynq.Task) *logrus.Entry {
    l := w.Log
    if l == nil {
        l = logrus.StandardLogger()
    }
    return l.WithFields(logrus.Fields{"module": "jobs", "task_type": t.Type()})
}

// Mux routes task types to the worker's handlers.
func (w *Worker) Mux() *asynq.ServeMux {
    mux := asynq.NewServeMux()
    mux.HandleFunc(TypeFinanceSync, w.HandleFinanceSync)
    mux.HandleFunc(TypeReportGenerate, w.HandleReportGenerate)
    mux.HandleFunc(TypeTokenCleanup, w.HandleTokenCleanup)
    return mux
}

// HandleFinanceSync rebuilds the report for the payload filter and announces
// finance.synced.  Hub subscribers purge the response cache on that topic,
// so the next dashboard read recomputes from the store.
func (w *Worker) HandleFinanceSync(ctx context.Context, t *asynq.Task) error {
    var p FinanceSyncPayload
    if err := json.Unmarshal(t.Payload(), &p); err != nil {
        return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
    }
    log := w.logger(t).WithField("requested_by", p.RequestedBy)

    full, err := w.Reports.Build(ctx, p.Filter.model())
    if err != nil {
        log.WithError(err).Error("finance sync failed")
        return err
    }
    ev := queue.FinanceSyncedEvent{
        Charges:  len(full.Charges),
        Bruto:    full.Report.Summary.Bruto,
        Liquido:  full.Report.Summary.Liquido,
        SyncedAt: w.now().UTC().Format(time.RFC3339),
    }
    if w.Hub != nil {
        if err := w.Hub.PublishJSON(realtime.TopicFinanceSynced, ev); err != nil {
            log.WithError(err).Warn("notify finance synced")
        }
    }
    if w.Events != nil {
        if err := w.Events.Publish(ctx, queue.FinanceSyncedQueue, ev); err != nil {
            log.WithError(err).Warn("publish finance synced")
        }
    }
    log.WithFields(logrus.Fields{"charges": ev.Charges, "bruto": ev.Bruto}).Info("finance synced")
    return nil
}

// HandleReportGenerate renders the requested report and writes it to
// OutputDir.  The file appears atomically: it is written under a temporary
// name and renamed once complete.
func (w *Worker) HandleReportGenerate(ctx context.Context, t *asynq.Task) error {
    var p ReportPayload
    if err := json.Unmarshal(t.Payload(), &p); err != nil {
        return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
    }
    format, err := export.ParseFormat(p.Format)
    if err != nil {
        return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
    }
    name, err := export.ReportName(p.Report)
    if err != nil {
        return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
    }

    full, err := w.Reports.Build(ctx, p.Filter.model())
    if err != nil {
        return err
    }
    file, err := export.Render(format, export.Bundle{
        Name:          name,
        GeneratedAt:   w.now(),
        Location:      w.Location,
        IncludeTrends: p.IncludeTrends,
        Report:        full.Report,
        Funnel:        full.Funnel,
        Charges:       full.Charges,
        Customers:     full.Customers,
        Insights:      full.Insights,
    })
    if err != nil {
        // rendering is deterministic; retrying the same input will not help
        return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
    }
    path, err := writeAtomic(w.OutputDir, file.Name, file.Body)
    if err != nil {
        return err
    }
    w.logger(t).WithFields(logrus.Fields{
        "path":         path,
        "bytes":        len(file.Body),
        "requested_by": p.RequestedBy,
    }).Info("report written")
    return nil
}

// HandleTokenCleanup deletes refresh tokens expired before now - grace.
func (w *Worker) HandleTokenCleanup(ctx context.Context, t *asynq.Task) error {
    if w.Tokens == nil {
        return nil
    }
    var p TokenCleanupPayload
    if len(t.Payload()) > 0 {
        if err := json.Unmarshal(t.Payload(), &p); err != nil {
            return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
        }
    }
    n, err := w.Tokens.DeleteExpired(ctx, w.now().Add(-p.Grace))
    if err != nil {
        return err
    }
    w.logger(t).WithField("deleted", n).Info("expired refresh tokens removed")
    return nil
}

func writeAtomic(dir, name string, body []byte) (string, error) {
    if dir == "" {
        dir = "."
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return "", err
    }
    tmp, err := os.CreateTemp(dir, "."+name+".*")
    if err != nil {
        return "", err
    }
    defer os.Remove(tmp.Name())
    if _, err := tmp.Write(body); err != nil {
        tmp.Close()
        return "", err
    }
    if err := tmp.Close(); err != nil {
        return "", err
    }
    path := filepath.Join(dir, name)
    if err := os.Rename(tmp.Name(), path); err != nil {
        return "", err
    }
    return path, nil
}

// NewServer builds the asynq worker server from the jobs config.
func NewServer(opt asynq.RedisConnOpt, cfg config.JobsConfig, log *logrus.Logger) *asynq.Server {
    return asynq.NewServer(opt, asynq.Config{
        Concurrency:    cfg.Concurrency,
        RetryDelayFunc: asynq.DefaultRetryDelayFunc,
        Queues: map[string]int{
            QueueDefault: 5,
            QueueReports: 2,
        },
        Logger:   log,
        LogLevel: asynq.WarnLevel,
        ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
            retried, _ := asynq.GetRetryCount(ctx)
            maxRetry, _ := asynq.GetMaxRetry(ctx)
            log.WithFields(logrus.Fields{
                "module":    "jobs",
                "task_type": task.Type(),
                "retry":     retried,
                "max_retry": maxRetry,
            }).WithError(err).Error("task failed")
        }),
    })
}

// NewScheduler registers the periodic token cleanup.
func NewScheduler(opt asynq.RedisConnOpt, log *logrus.Logger) (*asynq.Scheduler, error) {
    s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: log, LogLevel: asynq.WarnLevel})
    if _, err := s.Register("@every 6h", NewTokenCleanupTask(24*time.Hour)); err != nil {
        return nil, err
    }
    return s, nil
}
