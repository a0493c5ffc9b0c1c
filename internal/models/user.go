package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型，存储于共享库
// 邮箱全局唯一（小写规范化），用户只归属一个店铺
type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	FullName     string     `json:"full_name" gorm:"not null;size:100"`
	Shop         string     `json:"shop" gorm:"not null;size:50;index"`
	Role         string     `json:"role" gorm:"not null;default:'customer';size:20;index"`
	IsActive     bool       `json:"is_active" gorm:"default:true;index"`
	IsVerified   bool       `json:"is_verified" gorm:"default:false"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LoginCount   int        `json:"login_count" gorm:"default:0"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// RefreshToken 刷新令牌持久化记录
// 吊销状态以此表为准：JWT签名有效但记录缺失或非活跃的刷新令牌一律拒绝
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null;size:512"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 表名
func (t *RefreshToken) TableName() string {
	return "refresh_tokens"
}
