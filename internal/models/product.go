package models

import (
	"time"

	"gorm.io/datatypes"
)

// 商品状态常量
const (
	ProductStatusActive       = "active"
	ProductStatusInactive     = "inactive"
	ProductStatusOutOfStock   = "out_of_stock"
	ProductStatusDiscontinued = "discontinued" // 终态，软删除
)

// Product 商品模型，存储于店铺独立库
// 删除即状态转为discontinued，记录与库存历史永不物理删除
type Product struct {
	BaseModel
	Name             string                      `json:"name" gorm:"not null;size:200"`
	Description      string                      `json:"description" gorm:"type:text"`
	ShortDescription string                      `json:"short_description" gorm:"size:500"`
	Slug             string                      `json:"slug" gorm:"uniqueIndex;not null;size:220"`
	SKU              string                      `json:"sku" gorm:"uniqueIndex;not null;size:100"`
	Price            float64                     `json:"price" gorm:"not null"`
	ComparePrice     *float64                    `json:"compare_price"`
	CostPrice        *float64                    `json:"cost_price"`
	CategoryIDs      datatypes.JSONSlice[uint]   `json:"category_ids"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	Images           datatypes.JSONSlice[string] `json:"images"`
	Dimensions       datatypes.JSONMap           `json:"dimensions"` // length/width/height
	Weight           *float64                    `json:"weight"`
	StockQuantity    int                         `json:"stock_quantity" gorm:"default:0"`
	TrackInventory   bool                        `json:"track_inventory" gorm:"default:true"`
	AllowBackorder   bool                        `json:"allow_backorder" gorm:"default:false"`
	Status           string                      `json:"status" gorm:"default:'active';size:20;index"`
	IsFeatured       bool                        `json:"is_featured" gorm:"default:false;index"`
	MetaTitle        string                      `json:"meta_title" gorm:"size:60"`
	MetaDescription  string                      `json:"meta_description" gorm:"size:160"`
	ViewCount        int64                       `json:"view_count" gorm:"default:0"`
	SalesCount       int64                       `json:"sales_count" gorm:"default:0"`
	CreatedBy        uint                        `json:"created_by"`
}

// TableName 表名
func (p *Product) TableName() string {
	return "products"
}

// IsDiscontinued 商品是否已下架（终态）
func (p *Product) IsDiscontinued() bool {
	return p.Status == ProductStatusDiscontinued
}

// InventoryHistory 库存变更审计记录
// 只追加：每次库存变更写一条，与库存更新在同一事务内完成
type InventoryHistory struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	ProductID      uint      `json:"product_id" gorm:"not null;index"`
	QuantityBefore int       `json:"quantity_before" gorm:"not null"`
	QuantityChange int       `json:"quantity_change" gorm:"not null"`
	QuantityAfter  int       `json:"quantity_after" gorm:"not null"`
	Reason         string    `json:"reason" gorm:"not null;size:100"`
	Notes          string    `json:"notes" gorm:"size:500"`
	CreatedBy      uint      `json:"created_by" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 表名
func (h *InventoryHistory) TableName() string {
	return "inventory_history"
}
