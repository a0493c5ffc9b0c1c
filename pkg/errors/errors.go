package errors

import "errors"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// ========== 业务错误定义 ==========

// 身份与会话
var (
	ErrDuplicateEmail     = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidToken       = errors.New("令牌无效或已过期")
	ErrInvalidRole        = errors.New("无效的角色")
)

// 店铺
var (
	ErrUnknownShop = errors.New("店铺不存在")
)

// 商品与库存
var (
	ErrDuplicateSKU          = errors.New("SKU已存在")
	ErrProductNotFound       = errors.New("商品不存在")
	ErrInsufficientInventory = errors.New("库存不足")
	ErrInvalidPrice          = errors.New("售价必须大于0")
	ErrInvalidComparePrice   = errors.New("划线价必须大于售价")
	ErrInvalidSKU            = errors.New("SKU只能包含字母、数字、连字符和下划线")
)

// 分类
var (
	ErrCategoryNotFound     = errors.New("分类不存在")
	ErrDuplicateSlug        = errors.New("别名已存在")
	ErrCategoryHasProducts  = errors.New("分类下存在商品，无法删除")
	ErrCategoryHasChildren  = errors.New("分类下存在子分类，无法删除")
	ErrCategoryCycle        = errors.New("分类层级存在循环")
	ErrCategoryParentAbsent = errors.New("父分类不存在")
)
