package handlers

import (
	"errors"
	"strconv"

	"mshop/internal/services"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 分类接口（店铺维度）
type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

// Create 创建分类
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	category, err := h.categoryService.CreateCategory(c.Param("shop"), req.Name, req.Description, req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrCategoryParentAbsent):
			response.BadRequest(c, err.Error())
		case errors.Is(err, apperrors.ErrDuplicateSlug):
			response.Conflict(c, err.Error())
		default:
			response.ServerError(c, "创建分类失败")
		}
		return
	}
	response.SuccessWithMessage(c, "创建成功", category)
}

// List 查询分类树
func (h *CategoryHandler) List(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "true"))

	categories, err := h.categoryService.List(c.Param("shop"), activeOnly)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownShop) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询分类失败")
		return
	}
	response.Success(c, categories)
}

// Get 获取分类详情
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	category, err := h.categoryService.GetByID(c.Param("shop"), id)
	if err != nil {
		h.renderCategoryError(c, err, "查询分类失败")
		return
	}
	response.Success(c, category)
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
	IsActive    *bool   `json:"is_active"`
}

// Update 更新分类
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Param("shop"), id, &services.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		IsActive:    req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrCategoryNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrCategoryParentAbsent), errors.Is(err, apperrors.ErrCategoryCycle):
			response.BadRequest(c, err.Error())
		case errors.Is(err, apperrors.ErrDuplicateSlug):
			response.Conflict(c, err.Error())
		default:
			response.ServerError(c, "更新分类失败")
		}
		return
	}
	response.Success(c, category)
}

// Delete 删除分类（有商品或子分类时拒绝）
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(c.Param("shop"), id); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrCategoryNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrCategoryHasProducts), errors.Is(err, apperrors.ErrCategoryHasChildren):
			response.Conflict(c, err.Error())
		default:
			response.ServerError(c, "删除分类失败")
		}
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

func (h *CategoryHandler) renderCategoryError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrCategoryNotFound):
		response.NotFound(c, err.Error())
	default:
		response.ServerError(c, fallback)
	}
}
