package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"timeletter/backend/internal/auth"
	jwtpkg "timeletter/backend/internal/auth/jwt"
	"timeletter/backend/internal/config"
	"timeletter/backend/internal/health"
	"timeletter/backend/internal/identity"
	"timeletter/backend/internal/logger"
	"timeletter/backend/internal/monitoring"
	"timeletter/backend/internal/service"
	"timeletter/backend/internal/storage"
	"timeletter/backend/internal/storage/hybrid"
	"timeletter/backend/internal/storage/memory"
	"timeletter/backend/internal/storage/postgres"
	redisstore "timeletter/backend/internal/storage/redis"
	sqlstore "timeletter/backend/internal/storage/sql"
	httptransport "timeletter/backend/internal/transport/http"
)

// main 启动定时信件 HTTP API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting timeletter server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, redisClient, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化服务层
	resolver := identity.NewClient(cfg.Identity.APIURL, cfg.Identity.SecretKey)
	letterService := service.NewLetterService(store, resolver, cfg)
	letterService.SetMetrics(metrics)

	// 初始化认证服务
	authService := auth.NewService(store)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		LetterService: letterService,
		AuthService:   authService,
		JWTManager:    jwtManager,
		Store:         store,
		Metrics:       metrics,
		Health:        healthChecker,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置初始化存储层。
//
// 存储选择逻辑：
//   - database.type 为空时使用内存存储（开发环境）
//   - "mysql" / "postgres" 使用 database/sql 存储
//   - "pgx" 使用 pgx 连接池的 PostgreSQL 原生存储
//   - redis.enabled 为真时组合 Redis（限流计数与令牌黑名单）
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, *redisstore.Client, error) {
	var persistent storage.Store

	switch cfg.Database.Type {
	case "":
		log.Info("using memory storage (development mode)")
		persistent = memory.NewStore()
	case "mysql", "postgres":
		store, err := sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sql store: %w", err)
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
		persistent = store
	case "pgx":
		client, err := postgres.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres client: %w", err)
		}
		log.Info("using native PostgreSQL storage")
		persistent = postgres.NewStore(client)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if !cfg.Redis.Enabled {
		return persistent, nil, nil
	}

	redisClient, err := redisstore.New(&cfg.Redis, log)
	if err != nil {
		persistent.Close()
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	cache := redisstore.NewCache(redisClient)
	return hybrid.NewStore(persistent, cache), redisClient, nil
}
