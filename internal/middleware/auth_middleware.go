package middleware

import (
	"strings"

	"mshop/internal/models"
	"mshop/internal/services"
	"mshop/pkg/jwt"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件
type AuthMiddleware struct {
	userService *services.UserService
	jwtManager  *jwt.Manager
}

func NewAuthMiddleware(userService *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		jwtManager:  jwt.GetManager(),
	}
}

// extractBearerToken 从Authorization头提取Bearer令牌
func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return authHeader[7:], true
}

// RequireLogin 要求携带有效的访问令牌
// 令牌有效但用户已被禁用时同样拒绝
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractBearerToken(c)
		if !ok {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString, jwt.TokenTypeAccess)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		user, err := m.userService.GetByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		if !user.IsActive {
			response.Unauthorized(c, "用户已被禁用")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user_shop", user.Shop)
		c.Set("user_role", user.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

// OptionalLogin 可选登录：有令牌则注入用户，无令牌放行
// 令牌无效时按匿名处理，不报错
func (m *AuthMiddleware) OptionalLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractBearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString, jwt.TokenTypeAccess)
		if err != nil {
			c.Next()
			return
		}

		user, err := m.userService.GetByID(claims.UserID)
		if err != nil || !user.IsActive {
			c.Next()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user_shop", user.Shop)
		c.Set("user_role", user.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

// RequirePermission 要求特定权限（权限表为准，未知角色一律无权限）
func (m *AuthMiddleware) RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !models.HasPermission(user.(*models.User).Role, perm) {
			response.Forbidden(c, "权限不足：需要 "+perm+" 权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole 要求角色不低于指定角色
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !models.RoleAtLeast(user.(*models.User).Role, role) {
			response.Forbidden(c, "权限不足：需要 "+role+" 角色")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireShopAccess 要求路径中的店铺与用户归属店铺一致
// 超级管理员是唯一的跨店例外
func (m *AuthMiddleware) RequireShopAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		userObj := user.(*models.User)
		if userObj.Role == models.RoleSuperAdmin {
			c.Next()
			return
		}

		shopID := c.Param("shop")
		if shopID != "" && shopID != userObj.Shop {
			response.Forbidden(c, "无权访问其他店铺的数据")
			c.Abort()
			return
		}

		c.Next()
	}
}
