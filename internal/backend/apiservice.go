package backend

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/jo-hoe/agerestore/internal/metrics"

	"github.com/labstack/echo/v4"
)

// TimezoneHeader carries the caller's IANA timezone
const TimezoneHeader = "X-Timezone"

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
	verifier    *TokenVerifier
	limiter     *RateLimiter
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
		verifier:    NewTokenVerifier(config.Auth.JWTSecret),
		limiter:     NewRateLimiter(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.Use(metrics.Middleware())

	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "Age Restore is running")
	})
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", s.verifier.Authenticate())
	limited := s.limiter.Middleware()

	me := api.Group("/me")
	me.POST("", s.handleRegister)
	me.GET("", s.handleGetProfile)
	me.PUT("", s.handleUpdateProfile)
	me.GET("/dashboard", s.handleDashboard)
	me.GET("/upload", s.handleUploadStatus)
	me.POST("/upload", s.handleUpload, limited)
	me.POST("/refund-request", s.handleRefundRequest, limited)
	me.POST("/deletion-request", s.handleDeletionRequest, limited)
	me.GET("/requests", s.handleMyRequests)
	me.PUT("/avatar", s.handleUpdateAvatar, limited)

	api.GET("/photos/:id", s.handlePhoto)
	api.GET("/photos/:id/thumbnail", s.handleThumbnail)
	api.GET("/avatars/:id", s.handleAvatar)

	admin := api.Group("/admin", RequireAdmin(s.coreService.Admins()))
	admin.GET("/users", s.handleListUsers)
	admin.GET("/users/:id", s.handleUserDetail)
	admin.PUT("/users/:id/status", s.handleSetUserStatus)
	admin.GET("/notifications", s.handleListNotifications)
	admin.GET("/notifications/pending-count", s.handlePendingCount)
	admin.DELETE("/notifications/resolved", s.handleClearResolved)
	admin.PUT("/notifications/:id/status", s.handleSetNotificationStatus)
	admin.PUT("/notifications/:id/refund", s.handleRefundDecision)
	admin.PUT("/notifications/:id/deletion", s.handleDeletionDecision)
}

// RunMaintenance drops idle rate limiter buckets until ctx is done
func (s *APIService) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := s.limiter.Cleanup(now); removed > 0 {
				slog.Debug("rate limiter buckets evicted", "count", removed)
			}
		}
	}
}

// location resolves the caller's timezone, falling back to the configured default
func (s *APIService) location(c echo.Context) *time.Location {
	return s.coreService.Location(c.Request().Header.Get(TimezoneHeader))
}

func bindAndValidate(c echo.Context, request interface{}) error {
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(request)
}
