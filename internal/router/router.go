package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/handler"
    "github.com/iliyamo/civeni-admin/internal/middleware"
    "github.com/iliyamo/civeni-admin/internal/model"
)

// RegisterRoutes registers the probes.  /healthz only says the process is
// up; /readyz also pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health)
    e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the token endpoints.  Login, refresh and logout do
// not need an access token; logout only needs the refresh token it revokes.
// GET /v1/me returns the admin behind the access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
}

// RegisterPublic registers the unauthenticated read of the published
// programme used by the conference site.
func RegisterPublic(e *echo.Echo, s *handler.ScheduleHandler) {
    e.GET("/v1/public/schedule", s.PublicSchedule)
}

// Admin bundles what the admin API needs.  Redis may be nil: the cache and
// the rate limiter are then skipped.
type Admin struct {
    JWTSecret string
    Redis     *redis.Client
    Cache     config.CacheConfig
    RateLimit config.RateLimitConfig

    Auth     *handler.AuthHandler
    Finance  *handler.FinanceHandler
    Stream   *handler.StreamHandler
    RPC      *handler.RPCHandler
    Schedule *handler.ScheduleHandler
}

// RegisterAdmin registers everything under /v1/admin.  Every route requires
// an ADMIN access token and passes the per-user token bucket.
//
// Only the JSON reads of the finance dashboard are cached.  Exports, the
// event stream and the RPC endpoints are never cached: exports are large
// and must reflect the moment they were asked for, the stream is long-lived
// and RPCs have side effects.
func RegisterAdmin(e *echo.Echo, a Admin) {
    admin := e.Group("/v1/admin",
        middleware.JWTAuth(a.JWTSecret),
        middleware.RequireRole(model.RoleAdmin),
    )
    if a.Redis != nil && a.RateLimit.Enabled {
        admin.Use(middleware.NewTokenBucket(a.RateLimit, a.Redis))
    }

    admin.POST("/users", a.Auth.CreateAdmin)

    fin := admin.Group("/finance")
    cached := fin.Group("")
    if a.Redis != nil && a.Cache.Enabled {
        cached.Use(middleware.NewRedisCache(a.Cache, a.Redis))
    }
    cached.GET("/summary", a.Finance.Summary)
    cached.GET("/timeseries", a.Finance.TimeSeries)
    cached.GET("/by-brand", a.Finance.ByBrand)
    cached.GET("/funnel", a.Finance.Funnel)
    cached.GET("/charges", a.Finance.Charges)
    cached.GET("/customers", a.Finance.Customers)
    cached.GET("/report", a.Finance.Report)

    fin.GET("/export", a.Finance.Export)
    fin.GET("/stream", a.Stream.Stream)

    rpc := admin.Group("/rpc")
    rpc.POST("/finance-sync", a.RPC.FinanceSync)
    rpc.POST("/generate-report", a.RPC.GenerateReport)
    rpc.POST("/delete-customer", a.RPC.DeleteCustomer)

    registerSchedule(admin.Group("/schedule"), a.Schedule)
}

// registerSchedule maps the programme CRUD.  PUT replaces a resource, PATCH
// changes only the fields sent; both go through the same handler.
func registerSchedule(g *echo.Group, s *handler.ScheduleHandler) {
    g.GET("/days", s.ListDays)
    g.POST("/days", s.CreateDay)
    g.GET("/days/:id", s.GetDay)
    g.PUT("/days/:id", s.UpdateDay)
    g.PATCH("/days/:id", s.UpdateDay)
    g.DELETE("/days/:id", s.DeleteDay)
    g.POST("/days/:id/publish", s.PublishDay)

    g.GET("/days/:id/sessions", s.ListSessions)
    g.POST("/days/:id/sessions", s.CreateSession)
    g.PUT("/days/:id/order", s.SetOrder)
    g.POST("/days/:id/move", s.MoveSession)

    g.PUT("/sessions/:id", s.UpdateSession)
    g.PATCH("/sessions/:id", s.UpdateSession)
    g.DELETE("/sessions/:id", s.DeleteSession)
    g.POST("/sessions/:id/publish", s.PublishSession)
}
