package router

import (
	"time"

	"mshop/internal/database"
	"mshop/internal/handlers"
	"mshop/internal/middleware"
	"mshop/internal/services"
	"mshop/internal/shop"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(manager *database.Manager, registry *shop.Registry) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, manager, registry)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, manager *database.Manager, registry *shop.Registry) {
	userService := services.NewUserService(manager.Shared(), registry)
	mailService := services.NewMailService(database.GetMailQueue(), registry)
	productService := services.NewProductService(manager)
	categoryService := services.NewCategoryService(manager)

	auth := middleware.NewAuthMiddleware(userService)

	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由
		authHandler := handlers.NewAuthHandler(userService, mailService)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/request-password-reset", authHandler.RequestPasswordReset)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.POST("/verify-email", authHandler.VerifyEmail)
			authGroup.POST("/resend-verification", authHandler.ResendVerification)

			// 🔒 当前用户
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
			authGroup.PUT("/me", auth.RequireLogin(), authHandler.UpdateMe)
			authGroup.POST("/change-password", auth.RequireLogin(), authHandler.ChangePassword)
		}

		// 🔐 用户管理路由（后台）
		userHandler := handlers.NewUserHandler(userService)
		users := api.Group("/users")
		{
			users.POST("", auth.RequireLogin(), auth.RequirePermission("user:write"), userHandler.Create)
			users.GET("", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.List)
			users.GET("/count", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.Count)
			users.GET("/search", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.Search)
			users.GET("/:id", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.Get)
			users.PUT("/:id", auth.RequireLogin(), auth.RequirePermission("user:write"), userHandler.Update)
			users.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("user:delete"), userHandler.Deactivate)

			// 快捷操作
			users.POST("/:id/activate", auth.RequireLogin(), auth.RequirePermission("user:write"), userHandler.Activate)
			users.POST("/:id/deactivate", auth.RequireLogin(), auth.RequirePermission("user:write"), userHandler.Deactivate)

			// 角色变更仅超级管理员
			users.PUT("/:id/role", auth.RequireLogin(), auth.RequireRole("super_admin"), userHandler.UpdateRole)
		}

		// 店铺信息路由（公开）
		shopHandler := handlers.NewShopHandler(registry)
		api.GET("/shops", shopHandler.List)
		api.GET("/shops/resolve", shopHandler.GetByDomain)

		shops := api.Group("/shops/:shop")
		{
			shops.GET("", shopHandler.Get)
			shops.GET("/features", shopHandler.Features)

			// 商品路由：读公开，写需要商品权限且限本店铺
			productHandler := handlers.NewProductHandler(productService)
			products := shops.Group("/products")
			{
				products.GET("", productHandler.Search)
				products.GET("/stats", auth.OptionalLogin(), productHandler.Stats)
				products.GET("/slug/:slug", productHandler.GetBySlug)
				products.GET("/:id", productHandler.Get)

				products.POST("", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:write"), productHandler.Create)
				products.PUT("/:id", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:write"), productHandler.Update)
				products.DELETE("/:id", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:delete"), productHandler.Delete)

				// 库存
				products.PATCH("/:id/inventory", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:write"), productHandler.UpdateInventory)
				products.GET("/:id/inventory/history", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:read"), productHandler.InventoryHistory)
			}

			// 分类路由
			categoryHandler := handlers.NewCategoryHandler(categoryService)
			categories := shops.Group("/categories")
			{
				categories.GET("", categoryHandler.List)
				categories.GET("/:id", categoryHandler.Get)

				categories.POST("", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:write"), categoryHandler.Create)
				categories.PUT("/:id", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:write"), categoryHandler.Update)
				categories.DELETE("/:id", auth.RequireLogin(), auth.RequireShopAccess(), auth.RequirePermission("product:delete"), categoryHandler.Delete)
			}
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "MSHOP",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
