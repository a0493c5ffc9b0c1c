package models

// Category 商品分类，存储于店铺独立库
// 树形结构（parent_id），写入时禁止形成循环
type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"not null;size:100"`
	Description string `json:"description" gorm:"size:500"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null;size:120"`
	ParentID    *uint  `json:"parent_id" gorm:"index"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// 非存储字段，响应时填充
	ProductCount int64      `json:"product_count" gorm:"-"`
	Children     []Category `json:"children,omitempty" gorm:"-"`
}

// TableName 表名
func (c *Category) TableName() string {
	return "categories"
}
