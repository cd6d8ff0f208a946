package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/handler"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/monitoring"
	"github.com/stemsi/exstem-player/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session  *handler.SessionHandler
	Security *handler.SecurityHandler
	Upload   *handler.UploadHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable per-IP rate limiting.
func SetupRouter(handlers *Handlers, cfg *config.Config, limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.Brotli())
	if limiter != nil {
		router.Use(limiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", monitoring.PrometheusHandler())

	requireIdentity := middleware.RequireIdentity(cfg.JWTSecret, cfg.APIToken)

	api := router.Group("/api/v1")
	api.Use(requireIdentity, middleware.NoStore())

	// ─── 1. Quiz Sessions ──────────────────────────────────────────────
	sessions := api.Group("/sessions/:quiz_id")
	{
		sessions.POST("", handlers.Session.LoadSession)
		sessions.GET("", handlers.Session.GetState)
		sessions.DELETE("", handlers.Session.Exit)
		sessions.PUT("/answers/:question_id", handlers.Session.SetAnswer)
		sessions.POST("/flags/:question_id", handlers.Session.ToggleFlag)
		sessions.POST("/navigate", handlers.Session.Navigate)
		sessions.POST("/pause", handlers.Session.Pause)
		sessions.POST("/resume", handlers.Session.Resume)
		sessions.POST("/submit", handlers.Session.Submit)
	}

	// ─── 2. Security Settings ──────────────────────────────────────────
	securityForm := api.Group("/security/:quiz_id")
	{
		securityForm.GET("", handlers.Security.GetConfig)
		securityForm.PATCH("", handlers.Security.PatchConfig)
		securityForm.POST("/locate", handlers.Security.UseCurrentLocation)
		securityForm.POST("/check", handlers.Security.CheckLocation)
		securityForm.POST("/save", handlers.Security.Save)
	}

	// ─── 3. Uploads ────────────────────────────────────────────────────
	api.POST("/uploads/question-paper", handlers.Upload.DigitizeQuestionPaper)
	api.POST("/feedback", handlers.Upload.SubmitFeedback)

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws")
	ws.Use(requireIdentity)
	{
		ws.GET("/sessions/:quiz_id", handlers.WS.SessionStream)
	}

	return router
}
