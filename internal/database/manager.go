package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mshop/internal/shop"
	"mshop/pkg/config"
	apperrors "mshop/pkg/errors"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 连接参数
const (
	connectTimeout  = 5 * time.Second
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = time.Hour
)

// Manager 数据库管理器
// 共享库存放用户与刷新令牌；每个店铺一个独立库存放商品数据
// 店铺句柄懒加载并缓存整个进程生命周期，首次创建用singleflight去重
type Manager struct {
	registry *shop.Registry

	shared  *gorm.DB
	mu      sync.RWMutex
	handles map[string]*gorm.DB
	group   singleflight.Group

	// 可替换的连接函数，便于测试
	opener func(dsn string) (*gorm.DB, error)
}

// NewManager 创建数据库管理器并建立共享库连接
func NewManager(cfg *config.Config, registry *shop.Registry) (*Manager, error) {
	m := &Manager{
		registry: registry,
		handles:  make(map[string]*gorm.DB),
		opener:   openPostgres,
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s connect_timeout=%d",
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.Port,
		cfg.Database.SSLMode,
		int(connectTimeout.Seconds()),
	)

	shared, err := m.opener(dsn)
	if err != nil {
		return nil, fmt.Errorf("连接共享库失败: %v", err)
	}
	m.shared = shared

	return m, nil
}

// NewManagerFromDB 用已建立的连接构造管理器，共享库和所有店铺库复用同一连接
// 供测试和单库部署的运维工具使用
func NewManagerFromDB(db *gorm.DB, registry *shop.Registry) *Manager {
	return &Manager{
		registry: registry,
		shared:   db,
		handles:  make(map[string]*gorm.DB),
		opener: func(string) (*gorm.DB, error) {
			return db, nil
		},
	}
}

// openPostgres 建立Postgres连接并校验可达性
func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// Shared 获取共享库句柄
func (m *Manager) Shared() *gorm.DB {
	return m.shared
}

// ForShop 获取店铺独立库句柄
// 未知店铺返回ErrUnknownShop；首次访问时创建连接并缓存，
// 并发的首次访问只建立一个连接，所有调用方拿到同一句柄
func (m *Manager) ForShop(shopID string) (*gorm.DB, error) {
	cfg, ok := m.registry.Get(shopID)
	if !ok {
		return nil, apperrors.ErrUnknownShop
	}

	m.mu.RLock()
	db, cached := m.handles[shopID]
	m.mu.RUnlock()
	if cached {
		return db, nil
	}

	result, err, _ := m.group.Do(shopID, func() (interface{}, error) {
		// 双重检查：排队期间可能已有人建好
		m.mu.RLock()
		db, cached := m.handles[shopID]
		m.mu.RUnlock()
		if cached {
			return db, nil
		}

		db, err := m.opener(cfg.DSN)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.handles[shopID] = db
		m.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("连接店铺库失败: %v", err)
	}

	return result.(*gorm.DB), nil
}

// Close 关闭所有数据库连接
func (m *Manager) Close() error {
	var firstErr error

	closeOne := func(db *gorm.DB) {
		if db == nil {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, db := range m.handles {
		closeOne(db)
	}
	m.handles = make(map[string]*gorm.DB)
	closeOne(m.shared)

	return firstErr
}
