package handlers

import (
	"errors"
	"strconv"

	"mshop/internal/models"
	"mshop/internal/services"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/pagination"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理接口（后台）
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "ID格式错误")
		return 0, false
	}
	return uint(id), true
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &parsed
}

// callerScope 返回调用者的店铺范围
// super_admin是唯一的跨店例外，其余角色只能操作本店铺的用户
func callerScope(c *gin.Context) (string, bool) {
	value, exists := c.Get("user")
	if !exists {
		return "", false
	}
	caller := value.(*models.User)
	return caller.Shop, caller.Role == models.RoleSuperAdmin
}

// scopedUser 加载目标用户并校验店铺归属
// 其他店铺的用户对非super_admin不可见，按不存在处理
func (h *UserHandler) scopedUser(c *gin.Context, id uint) (*models.User, bool) {
	user, err := h.userService.GetByID(id)
	if err != nil {
		response.NotFound(c, apperrors.ErrUserNotFound.Error())
		return nil, false
	}
	if shop, isSuper := callerScope(c); !isSuper && user.Shop != shop {
		response.NotFound(c, apperrors.ErrUserNotFound.Error())
		return nil, false
	}
	return user, true
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Shop     string `json:"shop" binding:"required"`
	Role     string `json:"role" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

// Create 创建后台用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if shop, isSuper := callerScope(c); !isSuper && req.Shop != shop {
		response.Forbidden(c, "无权操作其他店铺的用户")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user, err := h.userService.CreateAdminUser(req.Email, req.Password, req.FullName, req.Shop, req.Role, isActive)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			response.Conflict(c, err.Error())
		case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrInvalidRole):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "创建用户失败")
		}
		return
	}
	response.SuccessWithMessage(c, "创建成功", toUserInfo(user))
}

// List 分页查询用户列表
func (h *UserHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)

	filters := &services.UserFilters{
		Shop:       c.Query("shop"),
		Role:       c.Query("role"),
		IsActive:   parseBoolQuery(c, "is_active"),
		IsVerified: parseBoolQuery(c, "is_verified"),
	}
	// 非super_admin只能看到本店铺的用户，忽略请求里的shop过滤
	if shop, isSuper := callerScope(c); !isSuper {
		filters.Shop = shop
	}

	users, total, err := h.userService.List(filters, params)
	if err != nil {
		response.ServerError(c, "查询用户列表失败")
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, toUserInfo(&users[i]))
	}
	response.SuccessWithPage(c, infos, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Count 按条件统计用户数
func (h *UserHandler) Count(c *gin.Context) {
	filters := &services.UserFilters{
		Shop:       c.Query("shop"),
		Role:       c.Query("role"),
		IsActive:   parseBoolQuery(c, "is_active"),
		IsVerified: parseBoolQuery(c, "is_verified"),
	}
	if shop, isSuper := callerScope(c); !isSuper {
		filters.Shop = shop
	}

	total, err := h.userService.Count(filters)
	if err != nil {
		response.ServerError(c, "统计用户失败")
		return
	}
	response.Success(c, gin.H{"total": total})
}

// Search 按姓名或邮箱搜索用户
func (h *UserHandler) Search(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		response.BadRequest(c, "缺少搜索关键词")
		return
	}

	shopScope, isSuper := callerScope(c)
	if isSuper {
		shopScope = ""
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	users, err := h.userService.Search(keyword, shopScope, limit)
	if err != nil {
		response.ServerError(c, "搜索用户失败")
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, toUserInfo(&users[i]))
	}
	response.Success(c, infos)
}

// Get 获取用户详情
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, ok := h.scopedUser(c, id)
	if !ok {
		return
	}
	response.Success(c, toUserInfo(user))
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
}

// Update 更新用户资料
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, ok := h.scopedUser(c, id); !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(id, req.FullName)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "更新用户失败")
		return
	}
	response.Success(c, toUserInfo(user))
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole 更新用户角色
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, ok := h.scopedUser(c, id); !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.UpdateRole(id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrInvalidRole):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "更新角色失败")
		}
		return
	}
	response.Success(c, toUserInfo(user))
}

// Activate 启用用户
func (h *UserHandler) Activate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, ok := h.scopedUser(c, id); !ok {
		return
	}

	if err := h.userService.Activate(id); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "启用用户失败")
		return
	}
	response.SuccessWithMessage(c, "用户已启用", nil)
}

// Deactivate 禁用用户（同时吊销其全部刷新令牌）
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	// 不允许禁用自己
	if c.GetUint("user_id") == id {
		response.BadRequest(c, "不能禁用自己的账号")
		return
	}

	if _, ok := h.scopedUser(c, id); !ok {
		return
	}

	if err := h.userService.Deactivate(id); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "禁用用户失败")
		return
	}
	response.SuccessWithMessage(c, "用户已禁用", nil)
}
