package services

import (
	"errors"
	"strings"
	"time"

	"mshop/internal/models"
	"mshop/internal/shop"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/pagination"

	"gorm.io/gorm"
)

// UserService 用户与会话服务，操作共享库
type UserService struct {
	db       *gorm.DB
	registry *shop.Registry
}

func NewUserService(db *gorm.DB, registry *shop.Registry) *UserService {
	return &UserService{
		db:       db,
		registry: registry,
	}
}

// Register 注册普通用户（customer角色，未验证）
func (s *UserService) Register(email, password, fullName, shopID string) (*models.User, error) {
	if !s.registry.IsValid(shopID) {
		return nil, apperrors.ErrUnknownShop
	}

	email = strings.ToLower(strings.TrimSpace(email))

	// 先查重，再靠唯一索引兜底
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	user := &models.User{
		Email:      email,
		FullName:   fullName,
		Shop:       shopID,
		Role:       models.RoleCustomer,
		IsActive:   true,
		IsVerified: false,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

// CreateAdminUser 创建后台用户（管理员预先验证邮箱）
func (s *UserService) CreateAdminUser(email, password, fullName, shopID, role string, isActive bool) (*models.User, error) {
	if !s.registry.IsValid(shopID) {
		return nil, apperrors.ErrUnknownShop
	}
	if !models.IsAdminRole(role) {
		return nil, apperrors.ErrInvalidRole
	}

	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	user := &models.User{
		Email:      email,
		FullName:   fullName,
		Shop:       shopID,
		Role:       role,
		IsActive:   isActive,
		IsVerified: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

// Authenticate 邮箱密码认证
// 用户不存在和密码错误返回同一个错误，不区分失败原因
// 认证成功时原子更新登录计数和最后登录时间
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"last_login_at": now,
		"login_count":   gorm.Expr("login_count + 1"),
	}).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.LoginCount++

	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户（小写规范化）
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 更新用户资料（只合并提供的字段，邮箱/角色/密码不在此处修改）
func (s *UserService) UpdateProfile(userID uint, fullName *string) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fullName != nil && *fullName != "" {
		updates["full_name"] = *fullName
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.GetByID(userID)
}

// ChangePassword 修改密码
// 重新哈希并吊销该用户全部刷新令牌，二者在同一事务内完成（强制所有端重新登录）
func (s *UserService) ChangePassword(userID uint, newPassword string) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("password_hash", user.PasswordHash).Error; err != nil {
			return err
		}
		return revokeAllRefreshTokens(tx, userID)
	})
}

// ResetPasswordByEmail 通过邮箱重置密码（密码重置令牌验证通过后调用）
func (s *UserService) ResetPasswordByEmail(email, newPassword string) error {
	user, err := s.GetByEmail(email)
	if err != nil {
		return err
	}
	return s.ChangePassword(user.ID, newPassword)
}

// VerifyEmail 标记邮箱已验证
func (s *UserService) VerifyEmail(email string) error {
	result := s.db.Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("is_verified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdateRole 更新用户角色
func (s *UserService) UpdateRole(userID uint, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, apperrors.ErrInvalidRole
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// Activate 启用用户
func (s *UserService) Activate(userID uint) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// Deactivate 禁用用户并吊销其全部刷新令牌（禁用的账号不得保留活跃会话）
func (s *UserService) Deactivate(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", userID).Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}
		return revokeAllRefreshTokens(tx, userID)
	})
}

// UserFilters 用户列表过滤条件
type UserFilters struct {
	Shop       string
	Role       string
	IsActive   *bool
	IsVerified *bool
}

func (s *UserService) applyUserFilters(query *gorm.DB, filters *UserFilters) *gorm.DB {
	if filters.Shop != "" {
		query = query.Where("shop = ?", strings.ToLower(filters.Shop))
	}
	if filters.Role != "" {
		query = query.Where("role = ?", filters.Role)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.IsVerified != nil {
		query = query.Where("is_verified = ?", *filters.IsVerified)
	}
	return query
}

// List 按条件分页查询用户
func (s *UserService) List(filters *UserFilters, params *pagination.PageParams) ([]models.User, int64, error) {
	query := s.applyUserFilters(s.db.Model(&models.User{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&users).Error
	return users, total, err
}

// Count 按条件统计用户数
func (s *UserService) Count(filters *UserFilters) (int64, error) {
	var total int64
	err := s.applyUserFilters(s.db.Model(&models.User{}), filters).Count(&total).Error
	return total, err
}

// Search 按姓名或邮箱模糊搜索用户
// shopScope非空时只在该店铺内搜索
func (s *UserService) Search(keyword, shopScope string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > pagination.MaxPageSize() {
		limit = pagination.DefaultPageSize()
	}

	pattern := "%" + keyword + "%"
	query := s.db.Where("full_name ILIKE ? OR email ILIKE ?", pattern, pattern)
	if shopScope != "" {
		query = query.Where("shop = ?", shopScope)
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ========== 刷新令牌管理 ==========

// StoreRefreshToken 持久化刷新令牌记录
func (s *UserService) StoreRefreshToken(userID uint, token string, ttl time.Duration) error {
	record := &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
		IsActive:  true,
	}
	return s.db.Create(record).Error
}

// ValidateRefreshToken 校验刷新令牌的持久化状态
// 要求：记录存在、精确匹配、活跃且未过期，否则一律视为无效令牌
func (s *UserService) ValidateRefreshToken(token string) (uint, error) {
	var record models.RefreshToken
	err := s.db.Where("token = ? AND is_active = ? AND expires_at > ?", token, true, time.Now()).
		First(&record).Error
	if err != nil {
		return 0, apperrors.ErrInvalidToken
	}
	return record.UserID, nil
}

// RevokeRefreshToken 吊销指定刷新令牌（登出）
func (s *UserService) RevokeRefreshToken(token string) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("is_active", false).Error
}

// RevokeAllRefreshTokens 吊销用户的全部刷新令牌
func (s *UserService) RevokeAllRefreshTokens(userID uint) error {
	return revokeAllRefreshTokens(s.db, userID)
}

func revokeAllRefreshTokens(db *gorm.DB, userID uint) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
}

// CleanupExpiredTokens 清理已过期的刷新令牌记录
// 过期在校验时已强制生效，此处只是回收存储空间
func (s *UserService) CleanupExpiredTokens() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
