package services

import (
	"os"
	"path/filepath"
	"testing"

	"mshop/internal/database"
	"mshop/internal/shop"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testShopID = "tinashop"

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

func testShopRegistry(t *testing.T) *shop.Registry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shops.json")
	content := `{"` + testShopID + `": {"name": "Tina Shop", "dsn": "unused-in-tests"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	registry, err := shop.NewRegistry(path)
	require.NoError(t, err)
	return registry
}

func testManager(t *testing.T, db *gorm.DB) *database.Manager {
	t.Helper()
	return database.NewManagerFromDB(db, testShopRegistry(t))
}
