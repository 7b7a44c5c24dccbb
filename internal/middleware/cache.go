package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/realtime"
)

// captureWriter tees the response body (up to limit bytes) while it is sent.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// Flush keeps streaming handlers working behind the cache.
func (cw *captureWriter) Flush() {
    if f, ok := cw.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

// cacheKey hashes the request identity under cfg.Prefix so Purge can drop
// every entry with one SCAN pattern.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // route_query
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodeEntry packs [status u32][header len u32][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
    hdr, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdr)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    copy(out[8:], hdr)
    copy(out[8+len(hdr):], body)
    return out, nil
}

func decodeEntry(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful responses of cfg.Methods in Redis,
// headers included, so a hit is byte-identical to the original response.
// Responses larger than MaxBodyBytes are served but not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodeEntry(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            if payload, err := encodeEntry(cw.status, hdr, cw.buf.Bytes()); err == nil {
                _ = rdb.Set(context.Background(), key, payload, ttl).Err()
            }
            return nil
        }
    }
}

// Purge deletes every cached response under prefix and returns how many
// keys were removed.
func Purge(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
    if rdb == nil {
        return 0, nil
    }
    var (
        cursor uint64
        n      int
    )
    for {
        keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 200).Result()
        if err != nil {
            return n, err
        }
        if len(keys) > 0 {
            if err := rdb.Del(ctx, keys...).Err(); err != nil {
                return n, err
            }
            n += len(keys)
        }
        cursor = next
        if cursor == 0 {
            return n, nil
        }
    }
}

// PurgeOn drops the finance cache whenever one of topics is published on
// the hub, so the dashboards refetch fresh numbers.  It returns the
// unsubscribe function.
func PurgeOn(hub *realtime.Hub, rdb *redis.Client, cfg config.CacheConfig, log *logrus.Logger, topics ...string) func() {
    if hub == nil || rdb == nil || !cfg.Enabled {
        return func() {}
    }
    var unsubs []func()
    for _, topic := range topics {
        unsubs = append(unsubs, hub.Subscribe(topic, func(e realtime.Event) {
            ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
            defer cancel()
            n, err := Purge(ctx, rdb, cfg.Prefix)
            if log == nil {
                return
            }
            if err != nil {
                log.WithError(err).WithField("topic", e.Topic).Warn("purge finance cache")
                return
            }
            log.WithFields(logrus.Fields{"topic": e.Topic, "keys": n}).Debug("finance cache purged")
        }))
    }
    return func() {
        for _, u := range unsubs {
            u()
        }
    }
}
