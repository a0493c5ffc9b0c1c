package jwt

import (
	"sync"
	"time"

	"mshop/pkg/config"
	apperrors "mshop/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 令牌类型常量
const (
	TokenTypeAccess            = "access"
	TokenTypeRefresh           = "refresh"
	TokenTypePasswordReset     = "password_reset"
	TokenTypeEmailVerification = "email_verification"
)

// Claims JWT声明
type Claims struct {
	UserID    uint   `json:"user_id,omitempty"` // access/refresh令牌携带
	Email     string `json:"email,omitempty"`   // password_reset/email_verification令牌携带
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager JWT管理器
type Manager struct {
	secretKey             string
	accessTokenDuration   time.Duration
	refreshTokenDuration  time.Duration
	passwordResetDuration time.Duration
	emailVerifyDuration   time.Duration
}

// NewManager 创建JWT管理器
func NewManager(secretKey string, accessDur, refreshDur, resetDur, verifyDur time.Duration) *Manager {
	return &Manager{
		secretKey:             secretKey,
		accessTokenDuration:   accessDur,
		refreshTokenDuration:  refreshDur,
		passwordResetDuration: resetDur,
		emailVerifyDuration:   verifyDur,
	}
}

// IssueAccessToken 签发访问令牌，ttl<=0时使用配置的默认有效期
func (m *Manager) IssueAccessToken(userID uint, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.accessTokenDuration
	}
	return m.sign(Claims{
		UserID:    userID,
		TokenType: TokenTypeAccess,
	}, ttl)
}

// IssueRefreshToken 签发刷新令牌（固定有效期）
func (m *Manager) IssueRefreshToken(userID uint) (string, error) {
	return m.sign(Claims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
	}, m.refreshTokenDuration)
}

// IssuePasswordResetToken 签发密码重置令牌
func (m *Manager) IssuePasswordResetToken(email string) (string, error) {
	return m.sign(Claims{
		Email:     email,
		TokenType: TokenTypePasswordReset,
	}, m.passwordResetDuration)
}

// IssueEmailVerificationToken 签发邮箱验证令牌
func (m *Manager) IssueEmailVerificationToken(email string) (string, error) {
	return m.sign(Claims{
		Email:     email,
		TokenType: TokenTypeEmailVerification,
	}, m.emailVerifyDuration)
}

func (m *Manager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    "MSHOP",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// VerifyToken 验证JWT令牌并检查令牌类型
// 签名错误、过期、类型不匹配、格式错误统一返回 ErrInvalidToken，不泄露具体原因
func (m *Manager) VerifyToken(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// 验证签名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperrors.ErrInvalidToken
			}
			return []byte(m.secretKey), nil
		},
	)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, apperrors.ErrInvalidToken
	}

	switch expectedType {
	case TokenTypeAccess, TokenTypeRefresh:
		if claims.UserID == 0 {
			return nil, apperrors.ErrInvalidToken
		}
	case TokenTypePasswordReset, TokenTypeEmailVerification:
		if claims.Email == "" {
			return nil, apperrors.ErrInvalidToken
		}
	default:
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

// GetAccessTokenDuration 获取访问令牌有效期
func (m *Manager) GetAccessTokenDuration() time.Duration {
	return m.accessTokenDuration
}

// GetRefreshTokenDuration 获取刷新令牌有效期
func (m *Manager) GetRefreshTokenDuration() time.Duration {
	return m.refreshTokenDuration
}

// 单例实现
var (
	defaultManager *Manager
	once           sync.Once
)

// GetManager 获取全局JWT管理器实例
func GetManager() *Manager {
	once.Do(func() {
		cfg := config.GetConfig()
		defaultManager = NewManager(
			cfg.JWT.SecretKey,
			parseDurationOr(cfg.JWT.AccessTokenDuration, 30*time.Minute),
			parseDurationOr(cfg.JWT.RefreshTokenDuration, 7*24*time.Hour),
			parseDurationOr(cfg.JWT.PasswordResetDuration, time.Hour),
			parseDurationOr(cfg.JWT.EmailVerifyDuration, 24*time.Hour),
		)
	})
	return defaultManager
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
