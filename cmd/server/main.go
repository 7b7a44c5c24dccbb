package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/bsm/redislock"
    "github.com/hibiken/asynq"
    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/database"
    "github.com/iliyamo/civeni-admin/internal/handler"
    "github.com/iliyamo/civeni-admin/internal/jobs"
    "github.com/iliyamo/civeni-admin/internal/middleware"
    "github.com/iliyamo/civeni-admin/internal/queue"
    "github.com/iliyamo/civeni-admin/internal/realtime"
    "github.com/iliyamo/civeni-admin/internal/report"
    "github.com/iliyamo/civeni-admin/internal/repository"
    "github.com/iliyamo/civeni-admin/internal/router"
    "github.com/iliyamo/civeni-admin/internal/schedule"
    publisher "github.com/iliyamo/civeni-admin/internal/service"
)

func main() {
    _ = godotenv.Load() // a missing .env is fine; the environment wins
    cfg := config.Load()
    log := config.NewLogger()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.WithError(err).Fatal("open database")
    }
    defer db.Close()

    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warn("redis unavailable: cache, rate limit, reorder lock and background jobs are off")
    } else {
        defer rdb.Close()
    }

    // repositories
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    charges := repository.NewChargeRepo(db)
    registrations := repository.NewRegistrationRepo(db)
    payouts := repository.NewPayoutRepo(db)
    days := repository.NewDayRepo(db)
    sessions := repository.NewSessionRepo(db)

    hub := realtime.NewHub(log)
    events := publisher.New(cfg.BrokerURL, log)

    cacheCfg := config.LoadCacheConfig()
    unpurge := middleware.PurgeOn(hub, rdb, cacheCfg, log, cacheCfg.PurgeOn...)
    defer unpurge()

    if cfg.BrokerURL != "" {
        consumer := &queue.PayoutConsumer{URL: cfg.BrokerURL, Payouts: payouts, Hub: hub, Log: log}
        go func() {
            if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
                log.WithError(err).Error("payout consumer stopped")
            }
        }()
    }

    reports := &report.Service{
        Charges:       charges,
        Registrations: registrations,
        Payouts:       payouts,
        Location:      cfg.Report.Location,
        Currency:      cfg.Report.Currency,
        SlowThreshold: cfg.Report.SlowThreshold,
        Log:           log,
    }

    reorder := &schedule.Service{Sessions: sessions, Events: events, Hub: hub, Log: log}
    if rdb != nil {
        reorder.Locker = redislock.New(rdb)
    }

    enqueuer := startJobs(ctx, cfg, log, rdb != nil, &jobs.Worker{
        Reports:   reports,
        Tokens:    tokens,
        Events:    events,
        Hub:       hub,
        OutputDir: cfg.Report.OutputDir,
        Location:  cfg.Report.Location,
        Log:       log,
    })
    defer enqueuer.Close()

    finance := &handler.FinanceHandler{
        Reports:  reports,
        Pager:    charges,
        Location: cfg.Report.Location,
        Currency: cfg.Report.Currency,
        Log:      log,
    }
    scheduleHandler := &handler.ScheduleHandler{
        Days:     days,
        Sessions: sessions,
        Reorder:  reorder,
        Slug:     cfg.Report.EventSlug,
        Hub:      hub,
        Log:      log,
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(middleware.RequestLogger(log))

    auth := handler.NewAuthHandler(cfg, users, tokens, log)
    router.RegisterRoutes(e, db)
    router.RegisterAuth(e, auth, cfg.JWTSecret)
    router.RegisterPublic(e, scheduleHandler)
    router.RegisterAdmin(e, router.Admin{
        JWTSecret: cfg.JWTSecret,
        Redis:     rdb,
        Cache:     cacheCfg,
        RateLimit: config.LoadRateLimitConfig(),
        Auth:      auth,
        Finance:   finance,
        Stream:    &handler.StreamHandler{Hub: hub, Log: log},
        RPC: &handler.RPCHandler{
            Jobs:          enqueuer,
            Registrations: registrations,
            Finance:       finance,
            Hub:           hub,
            MaxRetry:      cfg.Jobs.MaxRetry,
            Log:           log,
        },
        Schedule: scheduleHandler,
    })

    addr := ":" + cfg.Port
    go func() {
        log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.WithError(err).Fatal("http server")
        }
    }()

    <-ctx.Done()
    log.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Error("http shutdown")
    }
}

// startJobs runs the asynq worker and scheduler until ctx is done and
// returns the client the RPC endpoints enqueue with.  Without Redis, or with
// JOBS_ENABLED=false, the returned client refuses every task.
func startJobs(ctx context.Context, cfg config.Config, log *logrus.Logger, haveRedis bool, w *jobs.Worker) *jobs.Client {
    if !haveRedis || !cfg.Jobs.Enabled {
        return jobs.NewClient(nil)
    }
    ro := config.RedisOptions()
    opt := asynq.RedisClientOpt{Addr: ro.Addr, Password: ro.Password, DB: ro.DB, TLSConfig: ro.TLSConfig}

    srv := jobs.NewServer(opt, cfg.Jobs, log)
    if err := srv.Start(w.Mux()); err != nil {
        log.WithError(err).Error("start job worker")
        return jobs.NewClient(nil)
    }
    scheduler, err := jobs.NewScheduler(opt, log)
    if err != nil {
        log.WithError(err).Error("register periodic jobs")
    } else if err := scheduler.Start(); err != nil {
        log.WithError(err).Error("start job scheduler")
        scheduler = nil
    }

    go func() {
        <-ctx.Done()
        if scheduler != nil {
            scheduler.Shutdown()
        }
        srv.Shutdown()
    }()
    return jobs.NewClient(asynq.NewClient(opt))
}
