package database

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mshop/internal/shop"
	apperrors "mshop/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testRegistry(t *testing.T) *shop.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shops.json")
	content := `{
		"s1": {"name": "Shop One", "dsn": "host=localhost dbname=shop_s1"},
		"s2": {"name": "Shop Two", "dsn": "host=localhost dbname=shop_s2"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	registry, err := shop.NewRegistry(path)
	require.NoError(t, err)
	return registry
}

func TestForShopUnknownShop(t *testing.T) {
	m := &Manager{
		registry: testRegistry(t),
		handles:  make(map[string]*gorm.DB),
		opener: func(dsn string) (*gorm.DB, error) {
			return &gorm.DB{}, nil
		},
	}

	_, err := m.ForShop("nosuchshop")
	assert.ErrorIs(t, err, apperrors.ErrUnknownShop)
}

func TestForShopCachesHandle(t *testing.T) {
	var opened int32
	m := &Manager{
		registry: testRegistry(t),
		handles:  make(map[string]*gorm.DB),
		opener: func(dsn string) (*gorm.DB, error) {
			atomic.AddInt32(&opened, 1)
			return &gorm.DB{}, nil
		},
	}

	first, err := m.ForShop("s1")
	require.NoError(t, err)
	second, err := m.ForShop("s1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&opened))

	// 不同店铺是不同句柄
	other, err := m.ForShop("s2")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, int32(2), atomic.LoadInt32(&opened))
}

// 并发首次访问同一店铺只能建立一个连接，所有调用方拿到同一句柄
func TestForShopConcurrentFirstAccess(t *testing.T) {
	var opened int32
	m := &Manager{
		registry: testRegistry(t),
		handles:  make(map[string]*gorm.DB),
		opener: func(dsn string) (*gorm.DB, error) {
			atomic.AddInt32(&opened, 1)
			time.Sleep(10 * time.Millisecond) // 放大竞态窗口
			return &gorm.DB{}, nil
		},
	}

	const workers = 32
	results := make([]*gorm.DB, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := m.ForShop("s1")
			assert.NoError(t, err)
			results[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opened))
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}
