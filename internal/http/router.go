package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/TPSMaidscc/chat-audit/internal/config"
	"github.com/TPSMaidscc/chat-audit/internal/http/handlers"
	"github.com/TPSMaidscc/chat-audit/internal/http/middleware"
	"github.com/TPSMaidscc/chat-audit/internal/service"

	_ "github.com/TPSMaidscc/chat-audit/docs"
)

func Router(cfg config.Config, svc *service.AuditService, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Service:   svc,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/departments", h.Departments)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/analyze-all", h.AnalyzeAll)
		admin.POST("/analyze/:department", h.Analyze)
		admin.POST("/analyze/:department/upload", h.AnalyzeUpload)
		admin.POST("/delays/analyze/:department", h.Delays)
		admin.POST("/audit/:department", h.Audit)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
