package handlers

import (
	"errors"
	"fmt"
	"time"

	"mshop/internal/models"
	"mshop/internal/services"
	"mshop/pkg/config"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/jwt"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// AuthHandler 认证相关接口
type AuthHandler struct {
	userService *services.UserService
	mailService *services.MailService
	jwtManager  *jwt.Manager
}

func NewAuthHandler(userService *services.UserService, mailService *services.MailService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		mailService: mailService,
		jwtManager:  jwt.GetManager(),
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Shop     string `json:"shop" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenPairResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresAt    int64    `json:"expires_at"`
	User         UserInfo `json:"user"`
}

type UserInfo struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Shop        string     `json:"shop"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toUserInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Shop:        user.Shop,
		Role:        user.Role,
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// issueTokenPair 签发访问+刷新令牌并持久化刷新令牌
func (h *AuthHandler) issueTokenPair(user *models.User) (*TokenPairResponse, error) {
	accessToken, err := h.jwtManager.IssueAccessToken(user.ID, 0)
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.jwtManager.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := h.userService.StoreRefreshToken(user.ID, refreshToken, h.jwtManager.GetRefreshTokenDuration()); err != nil {
		return nil, err
	}

	return &TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(h.jwtManager.GetAccessTokenDuration()).Unix(),
		User:         toUserInfo(user),
	}, nil
}

// registerBindError 将注册参数校验错误翻译为友好提示
func registerBindError(err error) string {
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErr {
			switch fieldErr.Field() {
			case "Email":
				return "邮箱格式不正确"
			case "Password":
				return "密码不能为空"
			case "FullName":
				return "姓名不能为空"
			case "Shop":
				return "店铺不能为空"
			}
		}
	}
	return "请求参数错误: " + err.Error()
}

// Register 用户注册
// 注册成功直接返回令牌对，并异步发送验证邮件
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, registerBindError(err))
		return
	}

	if minLen := config.GetConfig().Security.PasswordMinLength; len(req.Password) < minLen {
		response.BadRequest(c, fmt.Sprintf("密码长度不能少于%d位", minLen))
		return
	}

	user, err := h.userService.Register(req.Email, req.Password, req.FullName, req.Shop)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			response.Conflict(c, err.Error())
		case errors.Is(err, apperrors.ErrUnknownShop):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "注册失败")
		}
		return
	}

	if verifyToken, err := h.jwtManager.IssueEmailVerificationToken(user.Email); err == nil {
		h.mailService.SendVerificationMail(c.Request.Context(), user.Email, user.Shop, verifyToken)
	}

	resp, err := h.issueTokenPair(user)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}
	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		response.Unauthorized(c, apperrors.ErrInvalidCredentials.Error())
		return
	}

	// 禁用账号返回403，不附带账号状态说明
	if !user.IsActive {
		response.Forbidden(c, "禁止访问")
		return
	}

	resp, err := h.issueTokenPair(user)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}
	response.Success(c, resp)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新令牌（轮换：旧刷新令牌作废，签发新令牌对）
// 签名有效但持久化记录缺失或已吊销的刷新令牌一律拒绝
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	claims, err := h.jwtManager.VerifyToken(req.RefreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}

	userID, err := h.userService.ValidateRefreshToken(req.RefreshToken)
	if err != nil || userID != claims.UserID {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}

	user, err := h.userService.GetByID(userID)
	if err != nil {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}
	// 禁用账号的刷新令牌与无效令牌同形拒绝
	if !user.IsActive {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}

	if err := h.userService.RevokeRefreshToken(req.RefreshToken); err != nil {
		response.ServerError(c, "刷新Token失败")
		return
	}

	resp, err := h.issueTokenPair(user)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}
	response.Success(c, resp)
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout 登出：吊销提交的刷新令牌
// 令牌缺失或无效也算登出成功
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		_ = h.userService.RevokeRefreshToken(req.RefreshToken)
	}
	response.SuccessWithMessage(c, "登出成功", nil)
}

// Me 获取当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		response.Unauthorized(c, "未登录")
		return
	}

	userObj := user.(*models.User)
	response.Success(c, gin.H{
		"user":        toUserInfo(userObj),
		"permissions": models.PermissionsForRole(userObj.Role),
	})
}

type UpdateMeRequest struct {
	FullName *string `json:"full_name"`
}

// UpdateMe 更新当前用户资料
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		response.Unauthorized(c, "未登录")
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(userID, req.FullName)
	if err != nil {
		response.ServerError(c, "更新资料失败")
		return
	}
	response.Success(c, toUserInfo(user))
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改密码
// 需验证旧密码；成功后所有刷新令牌失效，各端需重新登录
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		response.Unauthorized(c, "未登录")
		return
	}
	userObj := user.(*models.User)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if minLen := config.GetConfig().Security.PasswordMinLength; len(req.NewPassword) < minLen {
		response.BadRequest(c, fmt.Sprintf("密码长度不能少于%d位", minLen))
		return
	}

	if !userObj.CheckPassword(req.OldPassword) {
		response.BadRequest(c, "旧密码错误")
		return
	}

	if err := h.userService.ChangePassword(userObj.ID, req.NewPassword); err != nil {
		response.ServerError(c, "修改密码失败")
		return
	}
	response.SuccessWithMessage(c, "密码已修改，请重新登录", nil)
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
	Shop  string `json:"shop"`
}

// RequestPasswordReset 请求密码重置
// 无论邮箱是否存在都返回成功，不暴露注册状态
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if user, err := h.userService.GetByEmail(req.Email); err == nil {
		if token, err := h.jwtManager.IssuePasswordResetToken(user.Email); err == nil {
			h.mailService.SendPasswordResetMail(c.Request.Context(), user.Email, user.Shop, token)
		}
	}

	response.SuccessWithMessage(c, "如果该邮箱已注册，重置邮件将在几分钟内送达", nil)
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification 重发验证邮件
// 与密码重置一样，无论邮箱是否存在都返回成功
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if user, err := h.userService.GetByEmail(req.Email); err == nil && !user.IsVerified {
		if token, err := h.jwtManager.IssueEmailVerificationToken(user.Email); err == nil {
			h.mailService.SendVerificationMail(c.Request.Context(), user.Email, user.Shop, token)
		}
	}

	response.SuccessWithMessage(c, "如果该邮箱已注册且未验证，验证邮件将在几分钟内送达", nil)
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword 使用重置令牌设置新密码
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if minLen := config.GetConfig().Security.PasswordMinLength; len(req.NewPassword) < minLen {
		response.BadRequest(c, fmt.Sprintf("密码长度不能少于%d位", minLen))
		return
	}

	claims, err := h.jwtManager.VerifyToken(req.Token, jwt.TokenTypePasswordReset)
	if err != nil {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}

	if err := h.userService.ResetPasswordByEmail(claims.Email, req.NewPassword); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
			return
		}
		response.ServerError(c, "重置密码失败")
		return
	}
	response.SuccessWithMessage(c, "密码已重置，请重新登录", nil)
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail 使用验证令牌标记邮箱已验证
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	claims, err := h.jwtManager.VerifyToken(req.Token, jwt.TokenTypeEmailVerification)
	if err != nil {
		response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
		return
	}

	if err := h.userService.VerifyEmail(claims.Email); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			response.Unauthorized(c, apperrors.ErrInvalidToken.Error())
			return
		}
		response.ServerError(c, "邮箱验证失败")
		return
	}
	response.SuccessWithMessage(c, "邮箱验证成功", nil)
}
