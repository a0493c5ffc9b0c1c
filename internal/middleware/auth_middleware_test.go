package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mshop/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func contextWithUser(role, shop string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("user", &models.User{Role: role, Shop: shop})
	return c, w
}

func TestRequirePermission(t *testing.T) {
	m := &AuthMiddleware{}

	tests := []struct {
		role    string
		perm    string
		allowed bool
	}{
		{models.RoleCustomer, models.PermProductRead, true},
		{models.RoleCustomer, models.PermProductWrite, false},
		{models.RoleAdmin, models.PermProductWrite, true},
		{models.RoleAdmin, models.PermSystemConfig, false},
		{models.RoleSuperAdmin, models.PermProductWrite, true},
		{models.RoleSuperAdmin, models.PermSystemConfig, true},
		{"unknown", models.PermProductRead, false},
	}

	for _, tt := range tests {
		c, _ := contextWithUser(tt.role, "tinashop")
		m.RequirePermission(tt.perm)(c)
		assert.Equal(t, tt.allowed, !c.IsAborted(), "role=%s perm=%s", tt.role, tt.perm)
	}
}

func TestRequirePermissionWithoutLogin(t *testing.T) {
	m := &AuthMiddleware{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	m.RequirePermission(models.PermProductRead)(c)
	assert.True(t, c.IsAborted())
}

func TestRequireRole(t *testing.T) {
	m := &AuthMiddleware{}

	c, _ := contextWithUser(models.RoleCustomer, "tinashop")
	m.RequireRole(models.RoleAdmin)(c)
	assert.True(t, c.IsAborted())

	c, _ = contextWithUser(models.RoleAdmin, "tinashop")
	m.RequireRole(models.RoleAdmin)(c)
	assert.False(t, c.IsAborted())

	// 超级管理员不受层级限制
	c, _ = contextWithUser(models.RoleSuperAdmin, "tinashop")
	m.RequireRole(models.RoleAdmin)(c)
	assert.False(t, c.IsAborted())
}

func TestRequireShopAccess(t *testing.T) {
	m := &AuthMiddleware{}

	// 本店铺放行
	c, _ := contextWithUser(models.RoleAdmin, "tinashop")
	c.Params = gin.Params{{Key: "shop", Value: "tinashop"}}
	m.RequireShopAccess()(c)
	assert.False(t, c.IsAborted())

	// 跨店铺拒绝
	c, _ = contextWithUser(models.RoleAdmin, "tinashop")
	c.Params = gin.Params{{Key: "shop", Value: "micocah"}}
	m.RequireShopAccess()(c)
	assert.True(t, c.IsAborted())

	// 超级管理员是唯一的跨店例外
	c, _ = contextWithUser(models.RoleSuperAdmin, "tinashop")
	c.Params = gin.Params{{Key: "shop", Value: "micocah"}}
	m.RequireShopAccess()(c)
	assert.False(t, c.IsAborted())
}
