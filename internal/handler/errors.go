package handler

import (
    "errors"
    "net/http"
    "reflect"
    "slices"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/export"
    "github.com/iliyamo/civeni-admin/internal/jobs"
    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/realtime"
    "github.com/iliyamo/civeni-admin/internal/repository"
    "github.com/iliyamo/civeni-admin/internal/schedule"
)

// errConfirmationRequired guards destructive endpoints called without
// confirm=true.
var errConfirmationRequired = errors.New("confirmation required")

// validate reports field errors under their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    _ = v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
        return slices.Contains(model.SessionTypes, fl.Field().String())
    })
    return v
}

// validationError answers 422 with one entry per failing field.
func validationError(c echo.Context, err error) error {
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid input"})
    }
    fields := make(map[string]string, len(ve))
    for _, fe := range ve {
        fields[fe.Field()] = fe.Tag()
    }
    return c.JSON(http.StatusUnprocessableEntity, map[string]any{
        "error":  "validation failed",
        "fields": fields,
    })
}

// errorStatus maps a domain error to its HTTP status and public message.
// Anything unknown is a remote/store failure and gets a generic 500.
func errorStatus(err error) (int, string) {
    switch {
    case errors.Is(err, errConfirmationRequired):
        return http.StatusPreconditionRequired, "confirmation required: repeat with confirm=true"
    case errors.Is(err, repository.ErrDayNotFound):
        return http.StatusNotFound, "day not found"
    case errors.Is(err, repository.ErrSessionNotFound):
        return http.StatusNotFound, "session not found"
    case errors.Is(err, repository.ErrUserNotFound):
        return http.StatusNotFound, "user not found"
    case errors.Is(err, repository.ErrEmailExists):
        return http.StatusConflict, "email already exists"
    case errors.Is(err, repository.ErrConflict):
        return http.StatusConflict, "conflict"
    case errors.Is(err, schedule.ErrBusy):
        return http.StatusConflict, "day is being reordered, try again"
    case errors.Is(err, schedule.ErrCrossDay):
        return http.StatusUnprocessableEntity, "session does not belong to this day"
    case errors.Is(err, schedule.ErrInvalidOrder):
        return http.StatusUnprocessableEntity, "order must list every session of the day once"
    case errors.Is(err, schedule.ErrOutOfRange):
        return http.StatusUnprocessableEntity, "position out of range"
    case errors.Is(err, export.ErrUnsupportedFormat):
        return http.StatusBadRequest, "format must be csv, pdf or xlsx"
    case errors.Is(err, export.ErrUnknownReport):
        return http.StatusBadRequest, "report must be financeiro, participantes or analitico"
    case errors.Is(err, export.ErrExportFailed):
        return http.StatusInternalServerError, "export failed"
    case errors.Is(err, jobs.ErrJobsDisabled):
        return http.StatusServiceUnavailable, "background jobs unavailable"
    }
    return http.StatusInternalServerError, "internal error"
}

// respondError writes the mapped error.  5xx errors are logged with the
// original error; the client only sees the generic message.
func respondError(c echo.Context, log *logrus.Logger, funcName string, err error) error {
    status, msg := errorStatus(err)
    if status >= http.StatusInternalServerError {
        if log == nil {
            log = logrus.StandardLogger()
        }
        config.LogError(log, "handler", funcName, c.Request().Method+" "+c.Path(), nil, err)
    }
    return c.JSON(status, map[string]string{"error": msg})
}

// confirmed reports whether the caller confirmed a destructive action via
// ?confirm=true or a body flag.
func confirmed(c echo.Context, body bool) bool {
    if body {
        return true
    }
    switch strings.ToLower(c.QueryParam("confirm")) {
    case "1", "true", "yes":
        return true
    }
    return false
}

// notify publishes payload on the hub.  The request already succeeded, so a
// failure is only logged.
func notify(hub *realtime.Hub, log *logrus.Logger, funcName, topic string, payload any) {
    if hub == nil {
        return
    }
    if err := hub.PublishJSON(topic, payload); err != nil && log != nil {
        log.WithError(err).WithFields(logrus.Fields{
            "module":   "handler",
            "funcName": funcName,
            "topic":    topic,
        }).Warn("publish event")
    }
}
