package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"mshop/internal/database"
	"mshop/internal/models"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 别名插入撞唯一索引后的重试次数
const slugInsertRetries = 3

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ProductService 商品与库存服务，操作店铺独立库
type ProductService struct {
	dbm *database.Manager
}

func NewProductService(dbm *database.Manager) *ProductService {
	return &ProductService{dbm: dbm}
}

// CreateProduct 创建商品
// SKU规范化为大写并检查字符集；别名从名称派生，冲突时追加数字后缀
func (s *ProductService) CreateProduct(shopID string, product *models.Product, createdBy uint) (*models.Product, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	if !skuPattern.MatchString(product.SKU) {
		return nil, apperrors.ErrInvalidSKU
	}
	if product.Price <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}
	if product.ComparePrice != nil && *product.ComparePrice <= product.Price {
		return nil, apperrors.ErrInvalidComparePrice
	}
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}

	// SKU店铺内唯一
	var count int64
	if err := db.Model(&models.Product{}).Where("sku = ?", product.SKU).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSKU
	}

	product.CreatedBy = createdBy
	product.ViewCount = 0
	product.SalesCount = 0

	// 探测循环有竞态窗口，撞到唯一索引时重新探测再插入
	for attempt := 0; ; attempt++ {
		slug, err := uniqueSlug(db, &models.Product{}, product.Name, 0)
		if err != nil {
			return nil, err
		}
		product.Slug = slug

		err = db.Create(product).Error
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		// 冲突可能来自SKU而非别名
		var skuCount int64
		if err := db.Model(&models.Product{}).Where("sku = ?", product.SKU).Count(&skuCount).Error; err != nil {
			return nil, err
		}
		if skuCount > 0 {
			return nil, apperrors.ErrDuplicateSKU
		}

		if attempt >= slugInsertRetries {
			return nil, apperrors.ErrDuplicateSlug
		}
		product.ID = 0
	}
}

// GetByID 根据ID获取商品
func (s *ProductService) GetByID(shopID string, id uint) (*models.Product, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetBySlug 根据别名获取商品，并原子递增浏览计数
func (s *ProductService) GetBySlug(shopID, slug string) (*models.Product, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := db.Where("slug = ?", slug).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, err
	}

	// 浏览计数用SQL表达式递增，避免读改写竞态；失败只记日志价值不大，直接忽略
	db.Model(&product).UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	product.ViewCount++

	return &product, nil
}

// ProductUpdate 商品更新入参，nil字段保持原值
type ProductUpdate struct {
	Name             *string
	Description      *string
	ShortDescription *string
	Slug             *string
	Price            *float64
	ComparePrice     *float64
	CostPrice        *float64
	CategoryIDs      []uint
	Tags             []string
	Images           []string
	Dimensions       map[string]interface{}
	Weight           *float64
	StockQuantity    *int
	TrackInventory   *bool
	AllowBackorder   *bool
	Status           *string
	IsFeatured       *bool
	MetaTitle        *string
	MetaDescription  *string
}

// UpdateProduct 更新商品（只合并提供的字段）
// 名称变化且未显式给别名时重新派生别名
func (s *ProductService) UpdateProduct(shopID string, id uint, update *ProductUpdate) (*models.Product, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	product, err := s.GetByID(shopID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if update.Name != nil && *update.Name != "" && *update.Name != product.Name {
		updates["name"] = *update.Name
		if update.Slug == nil {
			slug, err := uniqueSlug(db, &models.Product{}, *update.Name, id)
			if err != nil {
				return nil, err
			}
			updates["slug"] = slug
		}
	}
	if update.Slug != nil && *update.Slug != "" {
		updates["slug"] = slugify(*update.Slug)
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.ShortDescription != nil {
		updates["short_description"] = *update.ShortDescription
	}
	if update.Price != nil {
		updates["price"] = *update.Price
	}
	if update.ComparePrice != nil {
		updates["compare_price"] = *update.ComparePrice
	}
	if update.CostPrice != nil {
		updates["cost_price"] = *update.CostPrice
	}
	if update.CategoryIDs != nil {
		data, _ := json.Marshal(update.CategoryIDs)
		updates["category_ids"] = data
	}
	if update.Tags != nil {
		data, _ := json.Marshal(update.Tags)
		updates["tags"] = data
	}
	if update.Images != nil {
		data, _ := json.Marshal(update.Images)
		updates["images"] = data
	}
	if update.Dimensions != nil {
		data, _ := json.Marshal(update.Dimensions)
		updates["dimensions"] = data
	}
	if update.Weight != nil {
		updates["weight"] = *update.Weight
	}
	if update.StockQuantity != nil {
		updates["stock_quantity"] = *update.StockQuantity
	}
	if update.TrackInventory != nil {
		updates["track_inventory"] = *update.TrackInventory
	}
	if update.AllowBackorder != nil {
		updates["allow_backorder"] = *update.AllowBackorder
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.IsFeatured != nil {
		updates["is_featured"] = *update.IsFeatured
	}
	if update.MetaTitle != nil {
		updates["meta_title"] = *update.MetaTitle
	}
	if update.MetaDescription != nil {
		updates["meta_description"] = *update.MetaDescription
	}

	// 价格不变式按合并后的完整结果校验
	// 只改售价也可能破坏已有划线价的约束，所以两个字段都要回退到存量值
	price := product.Price
	if update.Price != nil {
		price = *update.Price
	}
	if price <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}
	comparePrice := product.ComparePrice
	if update.ComparePrice != nil {
		comparePrice = update.ComparePrice
	}
	if comparePrice != nil && *comparePrice <= price {
		return nil, apperrors.ErrInvalidComparePrice
	}

	if len(updates) > 0 {
		if err := db.Model(product).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperrors.ErrDuplicateSlug
			}
			return nil, err
		}
	}

	return s.GetByID(shopID, id)
}

// DeleteProduct 删除商品（软删除：状态转为discontinued）
// 重复删除是幂等的no-op，不会复活记录
func (s *ProductService) DeleteProduct(shopID string, id uint) error {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return err
	}

	product, err := s.GetByID(shopID, id)
	if err != nil {
		return err
	}
	if product.IsDiscontinued() {
		return nil
	}

	return db.Model(product).Update("status", models.ProductStatusDiscontinued).Error
}

// ProductSearchQuery 商品搜索条件，全部条件为与关系
type ProductSearchQuery struct {
	Keyword    string
	CategoryID uint
	Tags       []string
	MinPrice   *float64
	MaxPrice   *float64
	Status     string
	IsFeatured *bool
	InStock    *bool
	SortBy     string
	SortOrder  string
}

// 允许的排序字段白名单
var productSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"price":          true,
	"stock_quantity": true,
	"view_count":     true,
	"sales_count":    true,
}

// Search 搜索商品（过滤+排序+分页）
func (s *ProductService) Search(shopID string, q *ProductSearchQuery, params *pagination.PageParams) ([]models.Product, *pagination.PageInfo, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, nil, err
	}

	query := db.Model(&models.Product{})

	if q.Keyword != "" {
		pattern := "%" + q.Keyword + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR short_description ILIKE ?",
			pattern, pattern, pattern)
	}
	if q.CategoryID > 0 {
		data, _ := json.Marshal([]uint{q.CategoryID})
		query = query.Where("category_ids @> ?", string(data))
	}
	if len(q.Tags) > 0 {
		// 命中任一标签即可
		conds := make([]string, 0, len(q.Tags))
		args := make([]interface{}, 0, len(q.Tags))
		for _, tag := range q.Tags {
			data, _ := json.Marshal([]string{tag})
			conds = append(conds, "tags @> ?")
			args = append(args, string(data))
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}
	if q.MinPrice != nil {
		query = query.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", *q.MaxPrice)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.IsFeatured != nil {
		query = query.Where("is_featured = ?", *q.IsFeatured)
	}
	if q.InStock != nil {
		if *q.InStock {
			query = query.Where("stock_quantity > 0")
		} else {
			query = query.Where("stock_quantity <= 0")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	sortBy := q.SortBy
	if !productSortFields[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}

	var products []models.Product
	err = query.Order(sortBy + " " + order).
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&products).Error
	if err != nil {
		return nil, nil, err
	}

	return products, pagination.NewPageInfo(params.Page, params.PageSize, total), nil
}

// UpdateInventory 按增量更新库存并写审计记录
// 行锁内读改写，库存更新与历史记录在同一事务提交，保证并发增量不丢失
func (s *ProductService) UpdateInventory(shopID string, id uint, delta int, reason, notes string, actorID uint) (*models.Product, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrProductNotFound
			}
			return err
		}

		before := product.StockQuantity
		after := before + delta
		if after < 0 && !product.AllowBackorder {
			return apperrors.ErrInsufficientInventory
		}

		if err := tx.Model(&product).Update("stock_quantity", after).Error; err != nil {
			return err
		}
		product.StockQuantity = after

		history := &models.InventoryHistory{
			ProductID:      id,
			QuantityBefore: before,
			QuantityChange: delta,
			QuantityAfter:  after,
			Reason:         reason,
			Notes:          notes,
			CreatedBy:      actorID,
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// GetInventoryHistory 查询商品的库存变更记录
func (s *ProductService) GetInventoryHistory(shopID string, productID uint, params *pagination.PageParams) ([]models.InventoryHistory, *pagination.PageInfo, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, nil, err
	}

	query := db.Model(&models.InventoryHistory{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var entries []models.InventoryHistory
	err = query.Order("created_at DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&entries).Error
	if err != nil {
		return nil, nil, err
	}

	return entries, pagination.NewPageInfo(params.Page, params.PageSize, total), nil
}

// ProductStats 商品统计概览
type ProductStats struct {
	TotalProducts   int64            `json:"total_products"`
	TotalCategories int64            `json:"total_categories"`
	LowStockCount   int64            `json:"low_stock_count"`
	OutOfStockCount int64            `json:"out_of_stock_count"`
	StatusCounts    map[string]int64 `json:"status_counts,omitempty"`
}

// 低库存阈值
const lowStockThreshold = 10

// Stats 统计商品概况，detailed时附带按状态分布（仅认证用户可见）
func (s *ProductService) Stats(shopID string, detailed bool) (*ProductStats, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	stats := &ProductStats{}

	if err := db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Category{}).Count(&stats.TotalCategories).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).
		Where("stock_quantity > 0 AND stock_quantity < ?", lowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).
		Where("stock_quantity <= 0").
		Count(&stats.OutOfStockCount).Error; err != nil {
		return nil, err
	}

	if detailed {
		type statusRow struct {
			Status string
			Count  int64
		}
		var rows []statusRow
		if err := db.Model(&models.Product{}).
			Select("status, count(*) as count").
			Group("status").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		stats.StatusCounts = make(map[string]int64, len(rows))
		for _, row := range rows {
			stats.StatusCounts[row.Status] = row.Count
		}
	}

	return stats, nil
}
