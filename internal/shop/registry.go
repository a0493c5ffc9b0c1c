package shop

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
)

// ThemeConfig 店铺主题配置
type ThemeConfig struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	Logo           string `json:"logo"`
	Favicon        string `json:"favicon"`
	Banner         string `json:"banner"`
}

// SettingsConfig 店铺功能设置
type SettingsConfig struct {
	AllowGuestCheckout       bool   `json:"allow_guest_checkout"`
	RequireEmailVerification bool   `json:"require_email_verification"`
	EnableReviews            bool   `json:"enable_reviews"`
	EnableWishlist           bool   `json:"enable_wishlist"`
	Currency                 string `json:"currency"`
	Language                 string `json:"language"`
	Timezone                 string `json:"timezone"`
}

// ContactConfig 店铺联系方式
type ContactConfig struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Config 单个店铺配置，加载后不可变
type Config struct {
	ID            string            `json:"-"`
	Name          string            `json:"name"`
	DSN           string            `json:"dsn"` // 店铺独立数据库连接串
	AdminEmail    string            `json:"admin_email"`
	AdminPassword string            `json:"admin_password"`
	FrontendURL   string            `json:"frontend_url"`
	Domain        string            `json:"domain"`
	Description   string            `json:"description"`
	Theme         ThemeConfig       `json:"theme"`
	Features      []string          `json:"features"`
	Settings      SettingsConfig    `json:"settings"`
	Contact       ContactConfig     `json:"contact"`
	Social        map[string]string `json:"social"`
}

// HasFeature 检查店铺是否启用指定功能
func (c *Config) HasFeature(feature string) bool {
	for _, f := range c.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Registry 店铺注册表
// 整表原子替换：读取方永远看到一份完整的配置集合，重载不会出现半更新状态
type Registry struct {
	configFile string
	shops      atomic.Pointer[map[string]*Config]
}

// NewRegistry 创建并加载店铺注册表
// 加载顺序：配置文件 -> SHOPS_CONFIG环境变量 -> 内置默认店铺
// 配置源存在但内容非法时直接报错，不会静默回退
func NewRegistry(configFile string) (*Registry, error) {
	r := &Registry{configFile: configFile}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload 重新加载店铺配置，成功后整表替换
func (r *Registry) Reload() error {
	shops, err := r.load()
	if err != nil {
		return err
	}
	r.shops.Store(&shops)
	return nil
}

func (r *Registry) load() (map[string]*Config, error) {
	// 优先从文件加载
	if data, err := os.ReadFile(r.configFile); err == nil {
		shops, err := parseShops(data)
		if err != nil {
			return nil, fmt.Errorf("店铺配置文件非法: %v", err)
		}
		return shops, nil
	}

	// 文件不存在时尝试环境变量
	if env := os.Getenv("SHOPS_CONFIG"); env != "" {
		shops, err := parseShops([]byte(env))
		if err != nil {
			return nil, fmt.Errorf("SHOPS_CONFIG环境变量非法: %v", err)
		}
		return shops, nil
	}

	// 最终回退：内置默认店铺
	return defaultShops(), nil
}

func parseShops(data []byte) (map[string]*Config, error) {
	var raw map[string]*Config
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("未配置任何店铺")
	}

	shops := make(map[string]*Config, len(raw))
	for id, cfg := range raw {
		if cfg == nil {
			return nil, fmt.Errorf("店铺 %s 配置为空", id)
		}
		if cfg.Name == "" {
			return nil, fmt.Errorf("店铺 %s 缺少名称", id)
		}
		cfg.ID = id
		shops[id] = cfg
	}
	return shops, nil
}

// defaultShops 内置默认店铺（配置源缺失时的回退）
func defaultShops() map[string]*Config {
	sharedDSN := os.Getenv("SHOP_SHARED_DSN")
	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:3000"
	}

	return map[string]*Config{
		"tinashop": {
			ID:            "tinashop",
			Name:          "Tina Shop",
			DSN:           sharedDSN,
			AdminEmail:    "admin@tina.shop",
			AdminPassword: "admin123",
			FrontendURL:   frontend,
			Domain:        "tina.shop",
			Description:   "Fashion & Lifestyle Store",
		},
		"micocah": {
			ID:            "micocah",
			Name:          "Micocah",
			DSN:           sharedDSN,
			AdminEmail:    "admin@micocah.vn",
			AdminPassword: "creator123",
			FrontendURL:   frontend,
			Domain:        "micocah.vn",
			Description:   "Technology & Electronics Hub",
		},
	}
}

// Get 根据ID获取店铺配置
func (r *Registry) Get(shopID string) (*Config, bool) {
	shops := *r.shops.Load()
	cfg, ok := shops[shopID]
	return cfg, ok
}

// GetAll 获取所有店铺配置（按ID排序）
func (r *Registry) GetAll() []*Config {
	shops := *r.shops.Load()
	result := make([]*Config, 0, len(shops))
	for _, cfg := range shops {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// IDs 获取所有店铺ID（按ID排序）
func (r *Registry) IDs() []string {
	all := r.GetAll()
	ids := make([]string, 0, len(all))
	for _, cfg := range all {
		ids = append(ids, cfg.ID)
	}
	return ids
}

// IsValid 检查店铺ID是否有效
func (r *Registry) IsValid(shopID string) bool {
	_, ok := r.Get(shopID)
	return ok
}

// GetByDomain 根据域名获取店铺配置（店铺数量小，线性扫描即可）
func (r *Registry) GetByDomain(domain string) (*Config, bool) {
	shops := *r.shops.Load()
	for _, cfg := range shops {
		if cfg.Domain == domain {
			return cfg, true
		}
	}
	return nil, false
}

// HasFeature 检查店铺是否启用指定功能
func (r *Registry) HasFeature(shopID, feature string) bool {
	cfg, ok := r.Get(shopID)
	if !ok {
		return false
	}
	return cfg.HasFeature(feature)
}
