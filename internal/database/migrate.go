package database

import (
	"mshop/internal/models"
	"mshop/pkg/logger"

	"gorm.io/gorm"
)

// MigrateShared 迁移共享库（用户与会话数据）
func MigrateShared(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting shared database migration...")

	err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
	)
	if err != nil {
		appLogger.Errorf("Shared database migration failed: %v", err)
		return err
	}

	appLogger.Info("Shared database migration completed successfully")
	return nil
}

// MigrateShop 迁移店铺独立库（商品数据）
func MigrateShop(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Category{},
		&models.InventoryHistory{},
	)
}

// MigrateAll 迁移共享库及所有已配置店铺的独立库
func (m *Manager) MigrateAll() error {
	appLogger := logger.GetLogger()

	if err := MigrateShared(m.Shared()); err != nil {
		return err
	}

	for _, shopID := range m.registry.IDs() {
		db, err := m.ForShop(shopID)
		if err != nil {
			appLogger.Errorf("Failed to connect shop database %s: %v", shopID, err)
			return err
		}
		if err := MigrateShop(db); err != nil {
			appLogger.Errorf("Shop database migration failed for %s: %v", shopID, err)
			return err
		}
		appLogger.Infof("Shop database migration completed for %s", shopID)
	}

	return nil
}
