package rest

import (
	"github.com/gin-gonic/gin"
	mw "github.com/villacheck/server/middleware"
)

// Handlers groups every REST handler served by the API.
type Handlers struct {
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Checklist *ChecklistHandler
	CheckIns  *CheckInHandler
	Admin     *AdminHandler
	Health    *HealthHandler
}

// RouteConfig carries the guards applied to protected routes.
type RouteConfig struct {
	Sessions mw.Authenticator
	AdminKey string
	AdminIPs []string
}

// Register mounts the API on r. Admin routes are skipped when h.Admin is nil.
func Register(r *gin.Engine, h Handlers, rc RouteConfig) {
	r.GET("/health", h.Health.Health)

	requireAuth := mw.Auth(rc.Sessions)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", h.Auth.Login)
		authG.POST("/logout", h.Auth.Logout)
		authG.GET("/me", requireAuth, h.Auth.Me)

		api.GET("/properties", h.Catalog.Properties)
		api.GET("/inventory", h.Catalog.Inventory)

		api.POST("/check-runs", requireAuth, h.Checklist.Submit)

		api.GET("/check-ins", h.CheckIns.List)
		api.POST("/check-ins", requireAuth, h.CheckIns.Create)

		if h.Admin != nil {
			adminG := api.Group("/admin")
			adminG.Use(mw.IPWhitelist(rc.AdminIPs), mw.AdminAuth(rc.AdminKey))
			adminG.GET("/audit", h.Admin.Audit)
			adminG.GET("/scheduler", h.Admin.ListSchedulerTasks)
		}
	}
}
