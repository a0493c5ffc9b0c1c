package main

import (
	"errors"
	"fmt"

	"mshop/internal/models"
	"mshop/internal/services"
	"mshop/internal/shop"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/logger"
)

// seedData 初始化种子数据
// 为注册表中配置了管理员凭证的店铺创建管理员账号，已存在则跳过
func seedData(userService *services.UserService, registry *shop.Registry) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	for _, cfg := range registry.GetAll() {
		if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
			appLogger.Infof("店铺 %s 未配置管理员凭证，跳过", cfg.ID)
			continue
		}

		if err := createShopAdmin(userService, cfg); err != nil {
			return fmt.Errorf("创建店铺 %s 管理员失败: %v", cfg.ID, err)
		}
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createShopAdmin 创建单个店铺的管理员账号
func createShopAdmin(userService *services.UserService, cfg *shop.Config) error {
	_, err := userService.CreateAdminUser(
		cfg.AdminEmail,
		cfg.AdminPassword,
		cfg.Name+" Admin",
		cfg.ID,
		models.RoleAdmin,
		true,
	)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			logger.GetLogger().Infof("店铺 %s 管理员已存在，跳过创建", cfg.ID)
			return nil
		}
		return err
	}

	logger.GetLogger().Infof("店铺 %s 管理员创建成功 - 邮箱: %s", cfg.ID, cfg.AdminEmail)
	return nil
}
