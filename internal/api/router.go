package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/app"
	iauth "github.com/charlesng35/leadflow/internal/auth"
	"github.com/charlesng35/leadflow/internal/handlers"
	"github.com/charlesng35/leadflow/internal/middleware"
	"github.com/charlesng35/leadflow/internal/monitoring"
	"github.com/charlesng35/leadflow/internal/realtime"
	"github.com/charlesng35/leadflow/internal/security"
)

// Dependencies are the collaborators NewRouter mounts.
type Dependencies struct {
	Config   *app.Config
	Services *Services
	Gate     *iauth.AdminGate
	// Hub serves GET /ws. Nil disables the live feed route.
	Hub       *realtime.Hub
	Health    *monitoring.HealthManager
	RateStore middleware.RateStore
	// Audit serves GET /api/security/audit when set.
	Audit *security.AuditService
	// UploadsDir is served under the local public base URL when media is
	// stored on disk.
	UploadsDir string
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services must be provided")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("admin gate must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	// Public intake endpoints are rate limited per client IP and route.
	var limiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Server.RateLimit.Enabled {
		limiter = middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, rateWindow(cfg.Server.RateLimit.Window))
	}

	registerHealthRoutes(r, cfg, deps.Health)
	registerPublicRoutes(r, deps.Services, limiter)

	authHandler := handlers.NewAuthHandler(deps.Gate)
	r.POST("/api/auth/login", limiter, authHandler.Login)

	requireAdmin := []gin.HandlerFunc{middleware.Auth(deps.Gate), middleware.RequireAdmin(deps.Gate)}

	var stream gin.HandlerFunc
	if deps.Hub != nil && cfg.Notifications.Enabled {
		stream = handlers.NewRealtimeHandler(deps.Hub).Stream
		r.GET("/ws", append(requireAdmin, stream)...)
	}

	api := r.Group("/api")
	api.Use(requireAdmin...)

	if stream != nil {
		api.GET("/notifications/stream", stream)
	}

	api.GET("/auth/me", authHandler.Me)

	registerLeadRoutes(api, deps.Services)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Services.Notifications))
	registerClientRoutes(api, handlers.NewClientHandler(deps.Services.Clients))
	registerContentRoutes(api, deps.Services)
	registerChatRoutes(api, handlers.NewChatHandler(deps.Services.Chat))
	api.GET("/dashboard/stats", handlers.NewDashboardHandler(deps.Services.Dashboard).Stats)
	if deps.Audit != nil {
		api.GET("/security/audit", handlers.NewSecurityHandler(deps.Audit).Audit)
	}

	if dir := strings.TrimSpace(deps.UploadsDir); dir != "" {
		base := strings.TrimSpace(cfg.Storage.Local.PublicBaseURL)
		if strings.HasPrefix(base, "/") {
			r.Static(strings.TrimRight(base, "/"), dir)
		}
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func rateWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}
