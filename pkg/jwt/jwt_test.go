package jwt

import (
	"testing"
	"time"

	apperrors "mshop/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("test-secret", 30*time.Minute, 7*24*time.Hour, time.Hour, 24*time.Hour)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueAccessToken(42, 0)
	require.NoError(t, err)

	claims, err := m.VerifyToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestVerifyExpiredToken(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueAccessToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyWrongKind(t *testing.T) {
	m := newTestManager()

	// 访问令牌按刷新令牌验证必须失败，与有效期无关
	token, err := m.IssueAccessToken(42, time.Hour)
	require.NoError(t, err)

	_, err = m.VerifyToken(token, TokenTypeRefresh)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	refresh, err := m.IssueRefreshToken(42)
	require.NoError(t, err)

	_, err = m.VerifyToken(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyTamperedSignature(t *testing.T) {
	m := newTestManager()
	other := NewManager("other-secret", 30*time.Minute, 7*24*time.Hour, time.Hour, 24*time.Hour)

	token, err := other.IssueAccessToken(42, time.Hour)
	require.NoError(t, err)

	_, err = m.VerifyToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	m := newTestManager()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.VerifyToken(token, TokenTypeAccess)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	}
}

func TestEmailTokens(t *testing.T) {
	m := newTestManager()

	reset, err := m.IssuePasswordResetToken("user@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyToken(reset, TokenTypePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)

	// 密码重置令牌不能当邮箱验证令牌用
	_, err = m.VerifyToken(reset, TokenTypeEmailVerification)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	verify, err := m.IssueEmailVerificationToken("user@example.com")
	require.NoError(t, err)

	claims, err = m.VerifyToken(verify, TokenTypeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestRefreshTokensHaveUniqueID(t *testing.T) {
	m := newTestManager()

	a, err := m.IssueRefreshToken(1)
	require.NoError(t, err)
	b, err := m.IssueRefreshToken(1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
