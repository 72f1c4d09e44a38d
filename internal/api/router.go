package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/polyboard/internal/api/handler"
	"github.com/evetabi/polyboard/internal/api/middleware"
	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/service"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	DashboardSvc *service.DashboardService
	Cfg          *config.Config

	// TemplateGlob overrides the template location; defaults to
	// "web/templates/*.html". Tests point this at a fixture dir.
	TemplateGlob string
}

// SetupRouter creates and configures the Gin engine with the dashboard routes.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	glob := deps.TemplateGlob
	if glob == "" {
		glob = "web/templates/*.html"
	}
	r.LoadHTMLGlob(glob)

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Dashboard ────────────────────────────────────────────────────────────
	dashH := handler.NewDashboardHandler(deps.DashboardSvc)
	r.GET("/", dashH.Index)
	r.POST("/execute_trade", middleware.RateLimit(deps.Cfg.Server.OrderRPS), dashH.ExecuteTrade)

	return r
}
