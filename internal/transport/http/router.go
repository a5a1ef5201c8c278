package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timeletter/backend/internal/auth"
	jwtpkg "timeletter/backend/internal/auth/jwt"
	"timeletter/backend/internal/config"
	"timeletter/backend/internal/health"
	"timeletter/backend/internal/middleware"
	"timeletter/backend/internal/monitoring"
	"timeletter/backend/internal/service"
	"timeletter/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	LetterService *service.LetterService
	AuthService   *auth.Service
	JWTManager    *jwtpkg.Manager
	Store         storage.Store
	Metrics       *monitoring.Metrics
	Health        *health.HealthChecker
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	letterHandler := NewLetterHandler(deps.LetterService, deps.Logger)
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	if blacklist, ok := deps.Store.(storage.JWTRepository); ok {
		jwtAuth.SetBlacklist(blacklist)
	}

	// 发信限流：优先使用共享计数存储，否则退回进程内令牌桶
	var submitRateLimit gin.HandlerFunc
	if rateLimitStore, ok := deps.Store.(storage.RateLimitRepository); ok {
		submitRateLimit = middleware.RateLimitByUser(
			rateLimitStore, deps.Logger,
			int64(deps.Config.Letter.SubmitPerMin), 1*time.Minute)
	} else {
		submitRateLimit = middleware.LocalRateLimitByUser(deps.Config.Letter.SubmitPerMin)
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint()))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Letter Routes ==========
		letterRoutes := v1.Group("/letters")
		letterRoutes.Use(jwtAuth.RequireAuth()) // 所有信件路由都需要认证
		{
			letterRoutes.POST("", submitRateLimit, letterHandler.sendLetter)
			letterRoutes.GET("", letterHandler.listLetters)
			letterRoutes.GET("/:id", letterHandler.getLetter)
		}
	}

	return router
}
