package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/hibiken/asynq"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/export"
    "github.com/iliyamo/civeni-admin/internal/jobs"
    "github.com/iliyamo/civeni-admin/internal/middleware"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// RegistrationCleaner removes registrations of a customer.
type RegistrationCleaner interface {
    DeleteDuplicatesByEmail(ctx context.Context, email string) (int64, error)
    DeleteByEmail(ctx context.Context, email string) (int64, error)
}

// RPCHandler serves the side-effect endpoints of the dashboard.  None of
// them is retried on failure; the caller decides whether to try again.
type RPCHandler struct {
    Jobs          jobs.Enqueuer
    Registrations RegistrationCleaner
    Finance       *FinanceHandler // filter parsing for queued reports
    Hub           *realtime.Hub
    MaxRetry      int
    Log           *logrus.Logger
}

type jobResp struct {
    TaskID string `json:"task_id"`
    Queue  string `json:"queue"`
    Type   string `json:"type"`
}

func (h *RPCHandler) enqueue(c echo.Context, funcName string, task *asynq.Task) error {
    opts := []asynq.Option{}
    if h.MaxRetry > 0 {
        opts = append(opts, asynq.MaxRetry(h.MaxRetry))
    }
    info, err := h.Jobs.Enqueue(c.Request().Context(), task, opts...)
    if err != nil {
        if errors.Is(err, asynq.ErrDuplicateTask) {
            return c.JSON(http.StatusConflict, map[string]string{"error": "already running"})
        }
        return respondError(c, h.Log, funcName, err)
    }
    return c.JSON(http.StatusAccepted, jobResp{TaskID: info.ID, Queue: info.Queue, Type: info.Type})
}

// FinanceSync queues a rebuild of the finance numbers for the query filter.
func (h *RPCHandler) FinanceSync(c echo.Context) error {
    f, err := h.Finance.parseFilter(c)
    if err != nil {
        return h.Finance.badFilter(c, err)
    }
    uid, _ := middleware.UserID(c)
    task, err := jobs.NewFinanceSyncTask(jobs.FinanceSyncPayload{Filter: jobs.FilterFrom(f), RequestedBy: uid})
    if err != nil {
        return respondError(c, h.Log, "FinanceSync", err)
    }
    return h.enqueue(c, "FinanceSync", task)
}

type generateReportReq struct {
    Format        string `json:"format" validate:"required,oneof=csv pdf xlsx"`
    Report        string `json:"report" validate:"omitempty,oneof=financeiro participantes analitico"`
    IncludeTrends bool   `json:"include_trends"`
}

// GenerateReport queues a report file for REPORT_OUTPUT_DIR.  The filter
// comes from the query string, the report choice from the body.
func (h *RPCHandler) GenerateReport(c echo.Context) error {
    var req generateReportReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    req.Format = strings.ToLower(strings.TrimSpace(req.Format))
    req.Report = strings.ToLower(strings.TrimSpace(req.Report))
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    if _, err := export.ReportName(req.Report); err != nil {
        return respondError(c, h.Log, "GenerateReport", err)
    }
    f, err := h.Finance.parseFilter(c)
    if err != nil {
        return h.Finance.badFilter(c, err)
    }
    uid, _ := middleware.UserID(c)
    task, err := jobs.NewReportTask(jobs.ReportPayload{
        Format:        req.Format,
        Report:        req.Report,
        IncludeTrends: req.IncludeTrends,
        Filter:        jobs.FilterFrom(f),
        RequestedBy:   uid,
    })
    if err != nil {
        return respondError(c, h.Log, "GenerateReport", err)
    }
    return h.enqueue(c, "GenerateReport", task)
}

type deleteCustomerReq struct {
    Email   string `json:"email" validate:"required,email"`
    Confirm bool   `json:"confirm"`
    All     bool   `json:"all"`
}

// DeleteCustomer removes duplicate registrations of an email, keeping the
// most recent one.  With all=true every registration of the email goes.
// Both need explicit confirmation.
func (h *RPCHandler) DeleteCustomer(c echo.Context) error {
    var req deleteCustomerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }
    if !confirmed(c, req.Confirm) {
        return respondError(c, h.Log, "DeleteCustomer", errConfirmationRequired)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()
    var (
        n   int64
        err error
    )
    if req.All {
        n, err = h.Registrations.DeleteByEmail(ctx, req.Email)
    } else {
        n, err = h.Registrations.DeleteDuplicatesByEmail(ctx, req.Email)
    }
    if err != nil {
        return respondError(c, h.Log, "DeleteCustomer", err)
    }

    if h.Log != nil {
        h.Log.WithFields(logrus.Fields{
            "module":  "rpc",
            "email":   req.Email,
            "all":     req.All,
            "deleted": n,
            "by":      middleware.Email(c),
        }).Info("customer registrations deleted")
    }
    if n > 0 {
        notify(h.Hub, h.Log, "DeleteCustomer", realtime.TopicFinanceSynced, map[string]any{"deleted": n, "email": req.Email})
    }
    return c.JSON(http.StatusOK, map[string]any{"email": req.Email, "deleted": n})
}
