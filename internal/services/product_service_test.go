package services

import (
	"sync"
	"testing"

	"mshop/internal/models"
	apperrors "mshop/pkg/errors"
	"mshop/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestProduct(t *testing.T, svc *ProductService, name, sku string, price float64) *models.Product {
	t.Helper()
	product, err := svc.CreateProduct(testShopID, &models.Product{
		Name:  name,
		SKU:   sku,
		Price: price,
	}, 1)
	require.NoError(t, err)
	return product
}

func TestCreateProductSlugSuffix(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	first := createTestProduct(t, svc, "Red Shoe", "SHOE-001", 49.9)
	second := createTestProduct(t, svc, "Red Shoe", "SHOE-002", 59.9)
	third := createTestProduct(t, svc, "Red Shoe", "SHOE-003", 69.9)

	// 同名商品的别名依次追加数字后缀
	assert.Equal(t, "red-shoe", first.Slug)
	assert.Equal(t, "red-shoe-1", second.Slug)
	assert.Equal(t, "red-shoe-2", third.Slug)
}

func TestCreateProductNormalizesSKU(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product := createTestProduct(t, svc, "Blue Shoe", "  shoe-blue_01  ", 39.9)
	assert.Equal(t, "SHOE-BLUE_01", product.SKU)

	// 规范化后重复的SKU被拒绝
	_, err := svc.CreateProduct(testShopID, &models.Product{
		Name:  "Another Blue Shoe",
		SKU:   "Shoe-Blue_01",
		Price: 29.9,
	}, 1)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSKU)

	// 含非法字符的SKU被拒绝
	_, err = svc.CreateProduct(testShopID, &models.Product{
		Name:  "Bad SKU",
		SKU:   "SHOE 001!",
		Price: 19.9,
	}, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSKU)
}

func TestCreateProductComparePriceInvariant(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	low := 49.9
	_, err := svc.CreateProduct(testShopID, &models.Product{
		Name:         "Discounted Shoe",
		SKU:          "SHOE-DISC",
		Price:        49.9,
		ComparePrice: &low,
	}, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidComparePrice)

	high := 99.9
	product, err := svc.CreateProduct(testShopID, &models.Product{
		Name:         "Discounted Shoe",
		SKU:          "SHOE-DISC",
		Price:        49.9,
		ComparePrice: &high,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, high, *product.ComparePrice)
}

func TestUpdateProductPriceInvariants(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	high := 99.9
	product, err := svc.CreateProduct(testShopID, &models.Product{
		Name:         "Priced Shoe",
		SKU:          "SHOE-PRICE",
		Price:        49.9,
		ComparePrice: &high,
	}, 1)
	require.NoError(t, err)

	// 售价必须为正，更新路径同样适用
	zero := 0.0
	_, err = svc.UpdateProduct(testShopID, product.ID, &ProductUpdate{Price: &zero})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPrice)

	// 只涨售价也不能越过已有的划线价
	tooHigh := 120.0
	_, err = svc.UpdateProduct(testShopID, product.ID, &ProductUpdate{Price: &tooHigh})
	assert.ErrorIs(t, err, apperrors.ErrInvalidComparePrice)

	// 合法调价不受影响，划线价保持原值
	legal := 59.9
	updated, err := svc.UpdateProduct(testShopID, product.ID, &ProductUpdate{Price: &legal})
	require.NoError(t, err)
	assert.Equal(t, legal, updated.Price)
	assert.Equal(t, high, *updated.ComparePrice)

	// 创建时售价为0同样被拒绝
	_, err = svc.CreateProduct(testShopID, &models.Product{
		Name:  "Free Shoe",
		SKU:   "SHOE-FREE",
		Price: 0,
	}, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPrice)
}

func TestDeleteProductIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product := createTestProduct(t, svc, "Old Shoe", "SHOE-OLD", 9.9)

	require.NoError(t, svc.DeleteProduct(testShopID, product.ID))
	loaded, err := svc.GetByID(testShopID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusDiscontinued, loaded.Status)

	// 重复删除是no-op，不存在的商品才报错
	require.NoError(t, svc.DeleteProduct(testShopID, product.ID))
	assert.ErrorIs(t, svc.DeleteProduct(testShopID, 99999), apperrors.ErrProductNotFound)
}

func TestUpdateInventoryWritesHistory(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product := createTestProduct(t, svc, "Stocked Shoe", "SHOE-STOCK", 19.9)

	updated, err := svc.UpdateInventory(testShopID, product.ID, 10, "restock", "initial stock", 1)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.StockQuantity)

	updated, err = svc.UpdateInventory(testShopID, product.ID, -4, "sale", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.StockQuantity)

	entries, _, err := svc.GetInventoryHistory(testShopID, product.ID, &pagination.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 最新的记录在前，前后数量衔接一致
	assert.Equal(t, 10, entries[0].QuantityBefore)
	assert.Equal(t, -4, entries[0].QuantityChange)
	assert.Equal(t, 6, entries[0].QuantityAfter)
	assert.Equal(t, 0, entries[1].QuantityBefore)
	assert.Equal(t, 10, entries[1].QuantityChange)
}

func TestUpdateInventoryInsufficient(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product := createTestProduct(t, svc, "Scarce Shoe", "SHOE-SCARCE", 19.9)
	_, err := svc.UpdateInventory(testShopID, product.ID, 3, "restock", "", 1)
	require.NoError(t, err)

	// 库存不足时整个操作回滚：数量不变，也不能留下历史记录
	_, err = svc.UpdateInventory(testShopID, product.ID, -5, "sale", "", 1)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)

	loaded, err := svc.GetByID(testShopID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.StockQuantity)

	entries, _, err := svc.GetInventoryHistory(testShopID, product.ID, &pagination.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateInventoryBackorder(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product, err := svc.CreateProduct(testShopID, &models.Product{
		Name:           "Backorder Shoe",
		SKU:            "SHOE-BACK",
		Price:          19.9,
		AllowBackorder: true,
	}, 1)
	require.NoError(t, err)

	// 允许缺货预订时库存可以为负
	updated, err := svc.UpdateInventory(testShopID, product.ID, -5, "preorder", "", 1)
	require.NoError(t, err)
	assert.Equal(t, -5, updated.StockQuantity)
}

func TestUpdateInventoryConcurrent(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product, err := svc.CreateProduct(testShopID, &models.Product{
		Name:           "Hot Shoe",
		SKU:            "SHOE-HOT",
		Price:          19.9,
		AllowBackorder: true,
	}, 1)
	require.NoError(t, err)

	// 增减交错并发执行，行锁保证每个增量不丢失也不重复
	var deltas []int
	expected := 0
	for i := 0; i < 8; i++ {
		deltas = append(deltas, 2, -1)
		expected += 2 - 1
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(deltas))
	for _, delta := range deltas {
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			_, err := svc.UpdateInventory(testShopID, product.ID, delta, "adjust", "", 1)
			errs <- err
		}(delta)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	loaded, err := svc.GetByID(testShopID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, loaded.StockQuantity)

	entries, pageInfo, err := svc.GetInventoryHistory(testShopID, product.ID,
		&pagination.PageParams{Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, entries, len(deltas))
	assert.Equal(t, int64(len(deltas)), pageInfo.Total)

	// 历史增量求和必须与最终库存一致
	sum := 0
	for _, entry := range entries {
		sum += entry.QuantityChange
	}
	assert.Equal(t, expected, sum)
}

func TestGetBySlugIncrementsViewCount(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	product := createTestProduct(t, svc, "Popular Shoe", "SHOE-POP", 19.9)

	first, err := svc.GetBySlug(testShopID, product.Slug)
	require.NoError(t, err)
	second, err := svc.GetBySlug(testShopID, product.Slug)
	require.NoError(t, err)

	assert.Equal(t, first.ViewCount+1, second.ViewCount)

	// 按ID读取不影响浏览计数
	loaded, err := svc.GetByID(testShopID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ViewCount, loaded.ViewCount)
}

func TestSearchProducts(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	_, err := svc.CreateProduct(testShopID, &models.Product{
		Name:  "Running Shoe",
		SKU:   "RUN-001",
		Price: 80,
		Tags:  []string{"sport", "outdoor"},
	}, 1)
	require.NoError(t, err)

	cheap, err := svc.CreateProduct(testShopID, &models.Product{
		Name:  "Walking Shoe",
		SKU:   "WALK-001",
		Price: 30,
		Tags:  []string{"casual"},
	}, 1)
	require.NoError(t, err)

	params := &pagination.PageParams{Page: 1, PageSize: 20}

	// 关键词匹配
	results, pageInfo, err := svc.Search(testShopID, &ProductSearchQuery{Keyword: "running"}, params)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RUN-001", results[0].SKU)
	assert.Equal(t, int64(1), pageInfo.Total)

	// 价格上限
	maxPrice := 50.0
	results, _, err = svc.Search(testShopID, &ProductSearchQuery{MaxPrice: &maxPrice}, params)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, cheap.ID, results[0].ID)

	// 标签包含（命中任一即可）
	results, _, err = svc.Search(testShopID, &ProductSearchQuery{Tags: []string{"sport", "casual"}}, params)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, _, err = svc.Search(testShopID, &ProductSearchQuery{Tags: []string{"sport"}}, params)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RUN-001", results[0].SKU)
}

func TestSearchProductsByCategory(t *testing.T) {
	db := openTestDB(t)
	manager := testManager(t, db)
	svc := NewProductService(manager)
	catSvc := NewCategoryService(manager)

	category, err := catSvc.CreateCategory(testShopID, "Shoes", "", nil)
	require.NoError(t, err)

	_, err = svc.CreateProduct(testShopID, &models.Product{
		Name:        "Categorized Shoe",
		SKU:         "CAT-001",
		Price:       10,
		CategoryIDs: []uint{category.ID},
	}, 1)
	require.NoError(t, err)
	createTestProduct(t, svc, "Uncategorized Shoe", "CAT-002", 10)

	results, _, err := svc.Search(testShopID, &ProductSearchQuery{CategoryID: category.ID},
		&pagination.PageParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "CAT-001", results[0].SKU)
}

func TestProductStats(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	stocked := createTestProduct(t, svc, "Stats Stocked", "STAT-001", 10)
	_, err := svc.UpdateInventory(testShopID, stocked.ID, 50, "restock", "", 1)
	require.NoError(t, err)

	low := createTestProduct(t, svc, "Stats Low", "STAT-002", 10)
	_, err = svc.UpdateInventory(testShopID, low.ID, 3, "restock", "", 1)
	require.NoError(t, err)

	createTestProduct(t, svc, "Stats Empty", "STAT-003", 10)

	stats, err := svc.Stats(testShopID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.LowStockCount)
	assert.Equal(t, int64(1), stats.OutOfStockCount)
	assert.Equal(t, int64(3), stats.StatusCounts[models.ProductStatusActive])

	// 未认证视图不含状态分布
	public, err := svc.Stats(testShopID, false)
	require.NoError(t, err)
	assert.Nil(t, public.StatusCounts)
}

func TestProductUnknownShop(t *testing.T) {
	db := openTestDB(t)
	svc := NewProductService(testManager(t, db))

	_, err := svc.GetByID("nosuchshop", 1)
	assert.ErrorIs(t, err, apperrors.ErrUnknownShop)
}
