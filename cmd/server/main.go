package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mshop/internal/database"
	"mshop/internal/router"
	"mshop/internal/services"
	"mshop/internal/shop"
	"mshop/pkg/config"
	"mshop/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting Multi-Shop Platform...")

	// 加载店铺注册表
	registry, err := shop.NewRegistry(cfg.Shop.ConfigFile)
	if err != nil {
		appLogger.Fatalf("Failed to load shop registry: %v", err)
	}
	appLogger.Infof("Loaded %d shops: %v", len(registry.IDs()), registry.IDs())

	// 初始化数据库（共享库 + 各店铺独立库）
	manager, err := database.NewManager(cfg, registry)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseMailQueue(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 执行数据库迁移
	if err := manager.MigrateAll(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化种子数据（各店铺管理员账号）
	userService := services.NewUserService(manager.Shared(), registry)
	if err := seedData(userService, registry); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 检查邮件队列可达性（不可达不影响启动，入队失败会记日志）
	if err := database.GetMailQueue().Ping(); err != nil {
		appLogger.Warnf("Mail queue is unreachable: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 启动刷新令牌清理调度器
	tokenCleanup := services.NewTokenCleanupScheduler(userService)
	if err := tokenCleanup.Start(); err != nil {
		appLogger.Errorf("Failed to start token cleanup scheduler: %v", err)
		// 不影响主服务启动
	}
	defer tokenCleanup.Stop()

	// 设置路由
	r := router.SetupRouter(manager, registry)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
