package config

import (
    "strings"
    "time"
)

// RateLimitConfig configures the Redis token bucket in front of the admin
// API.  Dashboard reads cost one token.  Exports and RPCs render whole
// reports or touch the jobs queue, so a request whose route starts with one
// of HeavyRoutes costs HeavyCost tokens.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
    HeavyCost      int
    HeavyRoutes    []string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to sane
// minimums.  HeavyCost never exceeds Capacity, otherwise an export could
// never pass.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "admin-rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
        HeavyCost:      envInt("RATE_LIMIT_HEAVY_COST", 10),
        HeavyRoutes:    envList("RATE_LIMIT_HEAVY_ROUTES", "/v1/admin/finance/export,/v1/admin/rpc/"),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 { def.Capacity = b }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    if def.HeavyCost < 1 { def.HeavyCost = 1 }
    if def.HeavyCost > def.Capacity { def.HeavyCost = def.Capacity }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }
    return def
}

// Cost is the number of tokens a request to route takes.
func (r RateLimitConfig) Cost(route string) int {
    for _, p := range r.HeavyRoutes {
        if strings.HasPrefix(route, p) {
            return max(1, min(r.HeavyCost, r.Capacity))
        }
    }
    return 1
}
