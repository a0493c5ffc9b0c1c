package pagination

import (
	"math"
	"strconv"

	"mshop/pkg/config"

	"github.com/gin-gonic/gin"
)

// PageParams 分页参数
type PageParams struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// PageInfo 分页信息
type PageInfo struct {
	Page       int   `json:"page"`        // 当前页
	PageSize   int   `json:"page_size"`   // 每页大小
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
	HasNext    bool  `json:"has_next"`    // 是否有下一页
	HasPrev    bool  `json:"has_prev"`    // 是否有上一页
}

// 配置缺失或非法时的兜底值
const (
	firstPage           = 1
	fallbackPageSize    = 10
	fallbackMaxPageSize = 100
)

// DefaultPageSize 未指定page_size时的默认值，来自分页策略配置
func DefaultPageSize() int {
	if size := config.GetConfig().Pagination.DefaultPageSize; size > 0 {
		return size
	}
	return fallbackPageSize
}

// MaxPageSize 调用方可申请的page_size上限，来自分页策略配置
func MaxPageSize() int {
	if size := config.GetConfig().Pagination.MaxPageSize; size > 0 {
		return size
	}
	return fallbackMaxPageSize
}

// ParsePageParams 从请求中解析分页参数
// 非法值回退默认，page_size超过策略上限时截断
func ParsePageParams(c *gin.Context) *PageParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < firstPage {
		page = firstPage
	}

	pageSize, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = DefaultPageSize()
	}
	if max := MaxPageSize(); pageSize > max {
		pageSize = max
	}

	return &PageParams{
		Page:     page,
		PageSize: pageSize,
	}
}

// NewPageInfo 计算分页信息
func NewPageInfo(page, pageSize int, total int64) *PageInfo {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	return &PageInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > firstPage,
	}
}

// GetOffset 计算offset
func (p *PageParams) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 计算limit
func (p *PageParams) GetLimit() int {
	return p.PageSize
}
