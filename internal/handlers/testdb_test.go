package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mshop/internal/database"
	"mshop/internal/models"
	"mshop/internal/shop"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// openTestDB 连接测试库，未设置TEST_DB_DSN时跳过
// 共享表和店铺表迁移到同一个库里，每次打开前清空数据
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("未设置TEST_DB_DSN，跳过数据库测试")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, database.MigrateShared(db))
	require.NoError(t, database.MigrateShop(db))

	for _, table := range []string{"inventory_history", "products", "categories", "refresh_tokens", "users"} {
		require.NoError(t, db.Exec("TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE").Error)
	}

	return db
}

// testShopRegistry 两个店铺的注册表，覆盖跨店铺场景
func testShopRegistry(t *testing.T) *shop.Registry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shops.json")
	content := `{
		"tinashop": {"name": "Tina Shop", "dsn": "unused-in-tests"},
		"micocah": {"name": "Micocah", "dsn": "unused-in-tests"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	registry, err := shop.NewRegistry(path)
	require.NoError(t, err)
	return registry
}

// testContext 构造请求上下文，caller非nil时注入登录态
func testContext(method, target, body string, caller *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	if caller != nil {
		c.Set("user", caller)
		c.Set("user_id", caller.ID)
		c.Set("user_shop", caller.Shop)
		c.Set("user_role", caller.Role)
	}
	return c, w
}

// decodeResponse 解析统一响应格式，返回业务码
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) int {
	t.Helper()

	var envelope struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Code
}
