package services

import (
	"encoding/json"
	"errors"

	"mshop/internal/database"
	"mshop/internal/models"
	apperrors "mshop/pkg/errors"

	"gorm.io/gorm"
)

// CategoryService 商品分类服务，操作店铺独立库
type CategoryService struct {
	dbm *database.Manager
}

func NewCategoryService(dbm *database.Manager) *CategoryService {
	return &CategoryService{dbm: dbm}
}

// CreateCategory 创建分类
// 父分类必须已存在；别名冲突时追加数字后缀
func (s *CategoryService) CreateCategory(shopID, name, description string, parentID *uint) (*models.Category, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		var count int64
		if err := db.Model(&models.Category{}).Where("id = ?", *parentID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryParentAbsent
		}
	}

	category := &models.Category{
		Name:        name,
		Description: description,
		ParentID:    parentID,
		IsActive:    true,
	}

	for attempt := 0; ; attempt++ {
		slug, err := uniqueSlug(db, &models.Category{}, name, 0)
		if err != nil {
			return nil, err
		}
		category.Slug = slug

		err = db.Create(category).Error
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if attempt >= slugInsertRetries {
			return nil, apperrors.ErrDuplicateSlug
		}
		category.ID = 0
	}
}

// GetByID 根据ID获取分类
func (s *CategoryService) GetByID(shopID string, id uint) (*models.Category, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// GetBySlug 根据别名获取分类
func (s *CategoryService) GetBySlug(shopID, slug string) (*models.Category, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := db.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// CategoryUpdate 分类更新入参，nil字段保持原值
type CategoryUpdate struct {
	Name        *string
	Description *string
	ParentID    *uint
	ClearParent bool
	IsActive    *bool
}

// UpdateCategory 更新分类
// 改父分类时校验父存在且不会形成环（分类不能是自己的祖先）
func (s *CategoryService) UpdateCategory(shopID string, id uint, update *CategoryUpdate) (*models.Category, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	category, err := s.GetByID(shopID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if update.Name != nil && *update.Name != "" && *update.Name != category.Name {
		slug, err := uniqueSlug(db, &models.Category{}, *update.Name, id)
		if err != nil {
			return nil, err
		}
		updates["name"] = *update.Name
		updates["slug"] = slug
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.ClearParent {
		updates["parent_id"] = nil
	} else if update.ParentID != nil {
		if *update.ParentID == id {
			return nil, apperrors.ErrCategoryCycle
		}
		parent, err := s.GetByID(shopID, *update.ParentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, apperrors.ErrCategoryParentAbsent
			}
			return nil, err
		}
		// 沿祖先链上溯，出现自身即成环
		cycle, err := s.wouldCycle(db, id, parent)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, apperrors.ErrCategoryCycle
		}
		updates["parent_id"] = *update.ParentID
	}

	if len(updates) > 0 {
		if err := db.Model(category).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperrors.ErrDuplicateSlug
			}
			return nil, err
		}
	}

	return s.GetByID(shopID, id)
}

func (s *CategoryService) wouldCycle(db *gorm.DB, id uint, parent *models.Category) (bool, error) {
	seen := map[uint]bool{}
	current := parent
	for {
		if current.ID == id {
			return true, nil
		}
		if current.ParentID == nil {
			return false, nil
		}
		if seen[current.ID] {
			// 存量数据已成环，按成环拒绝
			return true, nil
		}
		seen[current.ID] = true

		var next models.Category
		if err := db.First(&next, *current.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		current = &next
	}
}

// DeleteCategory 删除分类
// 仍有商品引用或存在子分类时拒绝删除
func (s *CategoryService) DeleteCategory(shopID string, id uint) error {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return err
	}

	if _, err := s.GetByID(shopID, id); err != nil {
		return err
	}

	var children int64
	if err := db.Model(&models.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	count, err := s.countProducts(db, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrCategoryHasProducts
	}

	return db.Delete(&models.Category{}, id).Error
}

// List 查询分类列表，附带子分类和商品计数
func (s *CategoryService) List(shopID string, activeOnly bool) ([]models.Category, error) {
	db, err := s.dbm.ForShop(shopID)
	if err != nil {
		return nil, err
	}

	query := db.Model(&models.Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []models.Category
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	childIdx := map[uint][]int{}
	var rootIdx []int
	for i := range categories {
		count, err := s.countProducts(db, categories[i].ID)
		if err != nil {
			return nil, err
		}
		categories[i].ProductCount = count

		if categories[i].ParentID != nil {
			childIdx[*categories[i].ParentID] = append(childIdx[*categories[i].ParentID], i)
		} else {
			rootIdx = append(rootIdx, i)
		}
	}

	// 自底向上装配，深层子树先于父节点的拷贝完成
	// 写入时已拒绝成环，递归必然终止
	var assemble func(i int) models.Category
	assemble = func(i int) models.Category {
		node := categories[i]
		for _, j := range childIdx[node.ID] {
			node.Children = append(node.Children, assemble(j))
		}
		return node
	}

	roots := make([]models.Category, 0, len(rootIdx))
	for _, i := range rootIdx {
		roots = append(roots, assemble(i))
	}
	return roots, nil
}

// countProducts 统计引用该分类的商品数（jsonb包含查询）
func (s *CategoryService) countProducts(db *gorm.DB, categoryID uint) (int64, error) {
	data, _ := json.Marshal([]uint{categoryID})
	var count int64
	err := db.Model(&models.Product{}).Where("category_ids @> ?", string(data)).Count(&count).Error
	return count, err
}
