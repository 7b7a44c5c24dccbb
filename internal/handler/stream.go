package handler

import (
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// StreamHandler pushes hub events to the dashboard as server-sent events.
// A client that cannot keep up loses events rather than stalling the hub;
// every event only tells the dashboard to refetch.
type StreamHandler struct {
    Hub       *realtime.Hub
    Heartbeat time.Duration
    Buffer    int
    Log       *logrus.Logger
}

// Stream serves GET /finance/stream?topics=a,b.  Without topics every event
// is forwarded.
func (h *StreamHandler) Stream(c echo.Context) error {
    if h.Hub == nil {
        return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "realtime unavailable"})
    }
    size := h.Buffer
    if size <= 0 {
        size = 32
    }
    beat := h.Heartbeat
    if beat <= 0 {
        beat = 25 * time.Second
    }

    events := make(chan realtime.Event, size)
    forward := func(e realtime.Event) {
        select {
        case events <- e:
        default:
            if h.Log != nil {
                h.Log.WithFields(logrus.Fields{"module": "stream", "topic": e.Topic}).Warn("slow client, event dropped")
            }
        }
    }
    topics := []string{realtime.AllTopics}
    if s := strings.TrimSpace(c.QueryParam("topics")); s != "" {
        topics = topics[:0]
        for _, t := range strings.Split(s, ",") {
            if t = strings.TrimSpace(t); t != "" {
                topics = append(topics, t)
            }
        }
    }
    for _, t := range topics {
        unsubscribe := h.Hub.Subscribe(t, forward)
        defer unsubscribe()
    }

    res := c.Response()
    res.Header().Set(echo.HeaderContentType, "text/event-stream")
    res.Header().Set("Cache-Control", "no-cache")
    res.Header().Set("Connection", "keep-alive")
    res.Header().Set("X-Accel-Buffering", "no")
    res.WriteHeader(http.StatusOK)
    fmt.Fprint(res, ": connected\n\n")
    res.Flush()

    ticker := time.NewTicker(beat)
    defer ticker.Stop()
    ctx := c.Request().Context()
    for {
        select {
        case <-ctx.Done():
            return nil
        case <-ticker.C:
            fmt.Fprint(res, ": ping\n\n")
            res.Flush()
        case e := <-events:
            fmt.Fprintf(res, "event: %s\ndata: %s\n\n", e.Topic, e.Payload)
            res.Flush()
        }
    }
}
