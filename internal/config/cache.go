package config

import (
    "net/http"
    "strings"
    "time"
)

// Topics that invalidate the finance cache unless CACHE_PURGE_ON says
// otherwise.  They match the realtime topic names.
const (
    defaultPurgeTopics = "finance.payout_updated,finance.synced"
    minCacheBody       = 4 << 10
)

// CacheConfig drives the finance response cache.  Only dashboard reads go
// through it.  Every event named in PurgeOn drops the whole Prefix, so TTL
// only bounds how stale a dashboard gets while the broker is down.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
    PurgeOn      []string
}

// LoadCacheConfig reads CACHE_* variables.
//
// CACHE_METHODS may only name GET and HEAD; anything else is ignored and an
// empty result falls back to GET.  The key always carries the query string
// because every finance read is filtered by it; CACHE_KEY_STRATEGY only
// chooses whether the method is part of the key.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      readMethods(envList("CACHE_METHODS", http.MethodGet)),
        TTL:          envDur("CACHE_TTL", time.Minute),
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:       envStr("CACHE_PREFIX", "fincache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
        PurgeOn:      envList("CACHE_PURGE_ON", defaultPurgeTopics),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    if cfg.KeyStrategy != "method_route_query" {
        cfg.KeyStrategy = "route_query"
    }
    if cfg.MaxBodyBytes < minCacheBody {
        cfg.MaxBodyBytes = minCacheBody
    }
    return cfg
}

func readMethods(list []string) map[string]bool {
    m := map[string]bool{}
    for _, p := range list {
        switch p = strings.ToUpper(p); p {
        case http.MethodGet, http.MethodHead:
            m[p] = true
        }
    }
    if len(m) == 0 {
        m[http.MethodGet] = true
    }
    return m
}
