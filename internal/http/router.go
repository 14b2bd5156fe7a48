package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"strata-violations/internal/http/middleware"
	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
)

type RouterConfig struct {
	Env          string
	StaffAuth    gin.HandlerFunc
	OccupantAuth gin.HandlerFunc
	// PublicRateLimit guards code issuance and verification.
	PublicRateLimit gin.HandlerFunc
	HealthCheck     func(ctx context.Context) error
	Metrics         *metrics.Metrics
	Log             zerolog.Logger
}

func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type", "Content-Disposition", "Retry-After"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	adjudicators := middleware.RequireRoles(model.UserRoleAdmin, model.UserRoleCouncil)

	protected := router.Group("/api")
	protected.Use(cfg.StaffAuth)
	{
		protected.GET("/violations", handler.listViolations)
		protected.GET("/violations/recent", handler.recentViolations)
		protected.GET("/violations/pending-approval", adjudicators, handler.pendingApproval)
		protected.GET("/violations/export", adjudicators, handler.exportViolations)
		protected.POST("/violations", handler.createViolation)
		protected.GET("/violations/:id", handler.getViolation)
		protected.PATCH("/violations/:id/status", adjudicators, handler.updateViolationStatus)
		protected.PATCH("/violations/:id/fine", adjudicators, handler.setFine)
		protected.PATCH("/violations/:id/approve", adjudicators, handler.approveViolation)
		protected.POST("/violations/:id/comments", handler.addComment)
		protected.GET("/violations/:id/history", handler.violationHistory)
		protected.DELETE("/violations/:id", handler.deleteViolation)

		protected.GET("/categories", handler.listCategories)
		protected.GET("/attachments/:name", handler.downloadAttachment)

		protected.GET("/reports/stats", adjudicators, handler.violationStats)
		protected.GET("/reports/repeat", adjudicators, handler.repeatUnits)

		protected.GET("/audit-logs", middleware.RequireRoles(model.UserRoleAdmin), handler.listAuditLogs)
	}

	public := router.Group("/public")
	{
		rateLimit := cfg.PublicRateLimit
		if rateLimit == nil {
			rateLimit = func(c *gin.Context) { c.Next() }
		}

		public.GET("/violation/:token/status", handler.linkStatus)
		public.POST("/violation/:token/send-code", rateLimit, handler.sendCode)
		public.POST("/violation/:token/verify-code", rateLimit, handler.verifyCode)
		public.POST("/violations/:id/dispute", cfg.OccupantAuth, handler.submitDispute)
	}

	return router
}
