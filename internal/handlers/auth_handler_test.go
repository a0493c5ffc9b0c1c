package handlers

import (
	"net/http"
	"testing"

	"mshop/internal/services"
	apperrors "mshop/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginDisabledAccount(t *testing.T) {
	db := openTestDB(t)
	registry := testShopRegistry(t)
	svc := services.NewUserService(db, registry)
	h := NewAuthHandler(svc, services.NewMailService(nil, registry))

	user, err := svc.Register("disabled@example.com", "password123", "Disabled", "tinashop")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(user.ID))

	// 禁用账号登录返回403，响应里不描述账号状态
	body := `{"email":"disabled@example.com","password":"password123"}`
	c, w := testContext(http.MethodPost, "/auth/login", body, nil)
	h.Login(c)
	assert.Equal(t, apperrors.CodeForbidden, decodeResponse(t, w, nil))
	assert.NotContains(t, w.Body.String(), "禁用")

	// 密码错误仍是统一的401
	body = `{"email":"disabled@example.com","password":"wrong-password"}`
	c, w = testContext(http.MethodPost, "/auth/login", body, nil)
	h.Login(c)
	assert.Equal(t, apperrors.CodeUnauthorized, decodeResponse(t, w, nil))
}
