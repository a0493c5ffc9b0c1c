package handlers

import (
	"mshop/internal/shop"
	"mshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// ShopHandler 店铺信息接口（公开，只暴露展示字段）
type ShopHandler struct {
	registry *shop.Registry
}

func NewShopHandler(registry *shop.Registry) *ShopHandler {
	return &ShopHandler{registry: registry}
}

// ShopInfo 店铺公开信息（不含DSN、管理员凭证等敏感字段）
type ShopInfo struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Domain      string              `json:"domain"`
	Description string              `json:"description"`
	FrontendURL string              `json:"frontend_url"`
	Theme       shop.ThemeConfig    `json:"theme"`
	Features    []string            `json:"features"`
	Settings    shop.SettingsConfig `json:"settings"`
	Contact     shop.ContactConfig  `json:"contact"`
	Social      map[string]string   `json:"social"`
}

func toShopInfo(cfg *shop.Config) ShopInfo {
	return ShopInfo{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Domain:      cfg.Domain,
		Description: cfg.Description,
		FrontendURL: cfg.FrontendURL,
		Theme:       cfg.Theme,
		Features:    cfg.Features,
		Settings:    cfg.Settings,
		Contact:     cfg.Contact,
		Social:      cfg.Social,
	}
}

// List 获取所有店铺
func (h *ShopHandler) List(c *gin.Context) {
	all := h.registry.GetAll()
	infos := make([]ShopInfo, 0, len(all))
	for _, cfg := range all {
		infos = append(infos, toShopInfo(cfg))
	}
	response.Success(c, infos)
}

// Get 获取店铺详情
func (h *ShopHandler) Get(c *gin.Context) {
	cfg, ok := h.registry.Get(c.Param("shop"))
	if !ok {
		response.NotFound(c, "店铺不存在")
		return
	}
	response.Success(c, toShopInfo(cfg))
}

// Features 获取店铺启用的功能列表
func (h *ShopHandler) Features(c *gin.Context) {
	cfg, ok := h.registry.Get(c.Param("shop"))
	if !ok {
		response.NotFound(c, "店铺不存在")
		return
	}

	features := cfg.Features
	if features == nil {
		features = []string{}
	}
	response.Success(c, gin.H{
		"shop":     cfg.ID,
		"features": features,
	})
}

// GetByDomain 按域名解析店铺（前端多域名路由用）
func (h *ShopHandler) GetByDomain(c *gin.Context) {
	domain := c.Query("domain")
	if domain == "" {
		response.BadRequest(c, "缺少域名参数")
		return
	}

	cfg, ok := h.registry.GetByDomain(domain)
	if !ok {
		response.NotFound(c, "店铺不存在")
		return
	}
	response.Success(c, toShopInfo(cfg))
}
