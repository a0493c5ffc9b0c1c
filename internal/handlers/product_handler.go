package handlers

import (
	"errors"
	"strconv"
	"strings"

	"mshop/internal/models"
	"mshop/internal/services"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/pagination"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProductHandler 商品接口（店铺维度）
type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

type CreateProductRequest struct {
	Name             string                 `json:"name" binding:"required"`
	Description      string                 `json:"description"`
	ShortDescription string                 `json:"short_description"`
	SKU              string                 `json:"sku" binding:"required"`
	Price            float64                `json:"price" binding:"required,gt=0"`
	ComparePrice     *float64               `json:"compare_price"`
	CostPrice        *float64               `json:"cost_price"`
	CategoryIDs      []uint                 `json:"category_ids"`
	Tags             []string               `json:"tags"`
	Images           []string               `json:"images"`
	Dimensions       map[string]interface{} `json:"dimensions"`
	Weight           *float64               `json:"weight"`
	StockQuantity    int                    `json:"stock_quantity"`
	TrackInventory   *bool                  `json:"track_inventory"`
	AllowBackorder   *bool                  `json:"allow_backorder"`
	Status           string                 `json:"status"`
	IsFeatured       bool                   `json:"is_featured"`
	MetaTitle        string                 `json:"meta_title"`
	MetaDescription  string                 `json:"meta_description"`
}

// Create 创建商品
func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	product := &models.Product{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		SKU:              req.SKU,
		Price:            req.Price,
		ComparePrice:     req.ComparePrice,
		CostPrice:        req.CostPrice,
		CategoryIDs:      req.CategoryIDs,
		Tags:             req.Tags,
		Images:           req.Images,
		Dimensions:       req.Dimensions,
		Weight:           req.Weight,
		StockQuantity:    req.StockQuantity,
		TrackInventory:   true,
		Status:           req.Status,
		IsFeatured:       req.IsFeatured,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
	}
	if req.TrackInventory != nil {
		product.TrackInventory = *req.TrackInventory
	}
	if req.AllowBackorder != nil {
		product.AllowBackorder = *req.AllowBackorder
	}

	created, err := h.productService.CreateProduct(c.Param("shop"), product, c.GetUint("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrDuplicateSKU), errors.Is(err, apperrors.ErrDuplicateSlug):
			response.Conflict(c, err.Error())
		case errors.Is(err, apperrors.ErrInvalidSKU), errors.Is(err, apperrors.ErrInvalidPrice),
			errors.Is(err, apperrors.ErrInvalidComparePrice):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "创建商品失败")
		}
		return
	}
	response.SuccessWithMessage(c, "创建成功", created)
}

// Get 获取商品详情
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Param("shop"), id)
	if err != nil {
		h.renderProductError(c, err, "查询商品失败")
		return
	}
	response.Success(c, product)
}

// GetBySlug 按别名获取商品详情（浏览计数+1）
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.productService.GetBySlug(c.Param("shop"), c.Param("slug"))
	if err != nil {
		h.renderProductError(c, err, "查询商品失败")
		return
	}
	response.Success(c, product)
}

type UpdateProductRequest struct {
	Name             *string                `json:"name"`
	Description      *string                `json:"description"`
	ShortDescription *string                `json:"short_description"`
	Slug             *string                `json:"slug"`
	Price            *float64               `json:"price"`
	ComparePrice     *float64               `json:"compare_price"`
	CostPrice        *float64               `json:"cost_price"`
	CategoryIDs      []uint                 `json:"category_ids"`
	Tags             []string               `json:"tags"`
	Images           []string               `json:"images"`
	Dimensions       map[string]interface{} `json:"dimensions"`
	Weight           *float64               `json:"weight"`
	StockQuantity    *int                   `json:"stock_quantity"`
	TrackInventory   *bool                  `json:"track_inventory"`
	AllowBackorder   *bool                  `json:"allow_backorder"`
	Status           *string                `json:"status"`
	IsFeatured       *bool                  `json:"is_featured"`
	MetaTitle        *string                `json:"meta_title"`
	MetaDescription  *string                `json:"meta_description"`
}

// Update 更新商品
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	update := &services.ProductUpdate{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Slug:             req.Slug,
		Price:            req.Price,
		ComparePrice:     req.ComparePrice,
		CostPrice:        req.CostPrice,
		CategoryIDs:      req.CategoryIDs,
		Tags:             req.Tags,
		Images:           req.Images,
		Dimensions:       req.Dimensions,
		Weight:           req.Weight,
		StockQuantity:    req.StockQuantity,
		TrackInventory:   req.TrackInventory,
		AllowBackorder:   req.AllowBackorder,
		Status:           req.Status,
		IsFeatured:       req.IsFeatured,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
	}

	product, err := h.productService.UpdateProduct(c.Param("shop"), id, update)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrProductNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrDuplicateSlug):
			response.Conflict(c, err.Error())
		case errors.Is(err, apperrors.ErrInvalidPrice), errors.Is(err, apperrors.ErrInvalidComparePrice):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "更新商品失败")
		}
		return
	}
	response.Success(c, product)
}

// Delete 删除商品（软删除，幂等）
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Param("shop"), id); err != nil {
		h.renderProductError(c, err, "删除商品失败")
		return
	}
	response.SuccessWithMessage(c, "商品已下架", nil)
}

// Search 搜索商品
func (h *ProductHandler) Search(c *gin.Context) {
	params := pagination.ParsePageParams(c)

	query := &services.ProductSearchQuery{
		Keyword:    c.Query("q"),
		Status:     c.Query("status"),
		IsFeatured: parseBoolQuery(c, "is_featured"),
		InStock:    parseBoolQuery(c, "in_stock"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if categoryID, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil {
		query.CategoryID = uint(categoryID)
	}
	if tags := c.Query("tags"); tags != "" {
		query.Tags = strings.Split(tags, ",")
	}
	if minPrice, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil {
		query.MinPrice = &minPrice
	}
	if maxPrice, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		query.MaxPrice = &maxPrice
	}

	products, pageInfo, err := h.productService.Search(c.Param("shop"), query, params)
	if err != nil {
		h.renderProductError(c, err, "搜索商品失败")
		return
	}
	response.SuccessWithPage(c, products, pageInfo)
}

type UpdateInventoryRequest struct {
	Change int    `json:"change" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateInventory 按增量调整库存
func (h *ProductHandler) UpdateInventory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	product, err := h.productService.UpdateInventory(
		c.Param("shop"), id, req.Change, req.Reason, req.Notes, c.GetUint("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrProductNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, apperrors.ErrInsufficientInventory):
			response.Conflict(c, err.Error())
		default:
			response.ServerError(c, "库存更新失败")
		}
		return
	}
	response.Success(c, product)
}

// InventoryHistory 查询库存变更记录
func (h *ProductHandler) InventoryHistory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	params := pagination.ParsePageParams(c)
	entries, pageInfo, err := h.productService.GetInventoryHistory(c.Param("shop"), id, params)
	if err != nil {
		h.renderProductError(c, err, "查询库存记录失败")
		return
	}
	response.SuccessWithPage(c, entries, pageInfo)
}

// Stats 商品统计，登录用户可见状态分布
func (h *ProductHandler) Stats(c *gin.Context) {
	_, authenticated := c.Get("user")
	stats, err := h.productService.Stats(c.Param("shop"), authenticated)
	if err != nil {
		h.renderProductError(c, err, "统计商品失败")
		return
	}
	response.Success(c, stats)
}

func (h *ProductHandler) renderProductError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrUnknownShop), errors.Is(err, apperrors.ErrProductNotFound):
		response.NotFound(c, err.Error())
	default:
		response.ServerError(c, fallback)
	}
}
