package config

import (
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger.  LOG_FORMAT=text switches to the
// human readable formatter; LOG_LEVEL accepts any logrus level name.
func NewLogger() *logrus.Logger {
    l := logrus.New()
    if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        l.SetFormatter(&logrus.JSONFormatter{})
    }
    level, err := logrus.ParseLevel(envStr("LOG_LEVEL", "info"))
    if err != nil {
        level = logrus.InfoLevel
    }
    l.SetLevel(level)
    l.SetOutput(os.Stdout)
    return l
}

// LogError writes an error entry tagged with where it happened.  data is
// optional and attached as-is.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
    fields := logrus.Fields{
        "module":   moduleName,
        "funcName": funcName,
        "context":  context,
    }
    if data != nil {
        fields["data"] = data
    }
    logger.WithFields(fields).Error(err.Error())
}
