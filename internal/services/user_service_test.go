package services

import (
	"testing"
	"time"

	apperrors "mshop/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicateEmailAnyCase(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	_, err := svc.Register("Alice@Example.com", "password123", "Alice", testShopID)
	require.NoError(t, err)

	// 邮箱按小写规范化存储，大小写不同也算重复
	_, err = svc.Register("alice@example.COM", "password456", "Alice Again", testShopID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
}

func TestRegisterUnknownShop(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	_, err := svc.Register("bob@example.com", "password123", "Bob", "nosuchshop")
	assert.ErrorIs(t, err, apperrors.ErrUnknownShop)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	_, err := svc.Register("carol@example.com", "correct-password", "Carol", testShopID)
	require.NoError(t, err)

	// 用户不存在和密码错误必须返回同一个错误
	_, errNoUser := svc.Authenticate("ghost@example.com", "whatever")
	_, errBadPass := svc.Authenticate("carol@example.com", "wrong-password")
	assert.ErrorIs(t, errNoUser, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, errBadPass, apperrors.ErrInvalidCredentials)
}

func TestAuthenticateUpdatesLoginStats(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	created, err := svc.Register("dave@example.com", "password123", "Dave", testShopID)
	require.NoError(t, err)
	require.Equal(t, 0, created.LoginCount)

	user, err := svc.Authenticate("dave@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 1, user.LoginCount)
	assert.NotNil(t, user.LastLoginAt)

	user, err = svc.Authenticate("dave@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoginCount)
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	user, err := svc.Register("erin@example.com", "old-password", "Erin", testShopID)
	require.NoError(t, err)

	require.NoError(t, svc.StoreRefreshToken(user.ID, "token-a", time.Hour))
	require.NoError(t, svc.StoreRefreshToken(user.ID, "token-b", time.Hour))

	_, err = svc.ValidateRefreshToken("token-a")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(user.ID, "new-password"))

	// 改密后旧刷新令牌全部失效，新密码立即可用
	_, err = svc.ValidateRefreshToken("token-a")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = svc.ValidateRefreshToken("token-b")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = svc.Authenticate("erin@example.com", "old-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Authenticate("erin@example.com", "new-password")
	assert.NoError(t, err)
}

func TestDeactivateRevokesRefreshTokens(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	user, err := svc.Register("frank@example.com", "password123", "Frank", testShopID)
	require.NoError(t, err)
	require.NoError(t, svc.StoreRefreshToken(user.ID, "frank-token", time.Hour))

	require.NoError(t, svc.Deactivate(user.ID))

	_, err = svc.ValidateRefreshToken("frank-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	loaded, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)
}

func TestValidateRefreshTokenExpiry(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	user, err := svc.Register("grace@example.com", "password123", "Grace", testShopID)
	require.NoError(t, err)

	// 已过期的记录即使活跃也无效
	require.NoError(t, svc.StoreRefreshToken(user.ID, "expired-token", -time.Minute))
	_, err = svc.ValidateRefreshToken("expired-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	require.NoError(t, svc.StoreRefreshToken(user.ID, "live-token", time.Hour))
	userID, err := svc.ValidateRefreshToken("live-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// 吊销后立即失效
	require.NoError(t, svc.RevokeRefreshToken("live-token"))
	_, err = svc.ValidateRefreshToken("live-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestCleanupExpiredTokens(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserService(db, testShopRegistry(t))

	user, err := svc.Register("heidi@example.com", "password123", "Heidi", testShopID)
	require.NoError(t, err)

	require.NoError(t, svc.StoreRefreshToken(user.ID, "stale-1", -time.Hour))
	require.NoError(t, svc.StoreRefreshToken(user.ID, "stale-2", -time.Minute))
	require.NoError(t, svc.StoreRefreshToken(user.ID, "fresh", time.Hour))

	removed, err := svc.CleanupExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	// 未过期的记录不受影响
	_, err = svc.ValidateRefreshToken("fresh")
	assert.NoError(t, err)
}
