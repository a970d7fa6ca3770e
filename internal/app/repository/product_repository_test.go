package repository

import (
	"sync"
	"testing"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (ProductRepository, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	return NewProductRepository(testDB), testDB
}

func TestProductRepository_CreateAndFindByID(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{
		Name:          "Ryzen 7 9800X3D",
		Description:   "8-core gaming CPU",
		Price:         479990,
		Category:      model.CategoryCPU,
		StockQuantity: 10,
	}
	require.NoError(t, repo.Create(product))
	require.NotZero(t, product.ID)

	got, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ryzen 7 9800X3D", got.Name)
	assert.Equal(t, 10, got.StockQuantity)
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	_, err := repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_FindWithFilter_Category(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	require.NoError(t, repo.Create(&model.Product{Name: "RTX 5080", Price: 1499990, Category: model.CategoryGPU, StockQuantity: 5}))
	require.NoError(t, repo.Create(&model.Product{Name: "B650 Tomahawk", Price: 229990, Category: model.CategoryMotherboard, StockQuantity: 7}))

	category := model.CategoryGPU
	products, err := repo.FindWithFilter(ProductFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "RTX 5080", products[0].Name)
}

func TestProductRepository_FindWithFilter_SearchAndSort(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	require.NoError(t, repo.Create(&model.Product{Name: "RTX 5080", Price: 1499990, Category: model.CategoryGPU, StockQuantity: 5}))
	require.NoError(t, repo.Create(&model.Product{Name: "RTX 5070", Price: 769990, Category: model.CategoryGPU, StockQuantity: 8}))
	require.NoError(t, repo.Create(&model.Product{Name: "850W PSU", Price: 159990, Category: model.CategoryPSU, StockQuantity: 12}))

	products, err := repo.FindWithFilter(ProductFilter{
		Search:        "RTX",
		SortBy:        ProductSortPrice,
		SortAscending: true,
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "RTX 5070", products[0].Name)
	assert.Equal(t, "RTX 5080", products[1].Name)
}

func TestProductRepository_TryDecrementStock_Applies(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{Name: "RTX 5080", Price: 1499990, Category: model.CategoryGPU, StockQuantity: 10}
	require.NoError(t, repo.Create(product))

	ok, err := repo.TryDecrementStock(product.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.FindByID(product.ID)
	assert.Equal(t, 6, got.StockQuantity)
}

func TestProductRepository_TryDecrementStock_InsufficientLeavesStockIntact(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{Name: "RTX 5090", Price: 2899990, Category: model.CategoryGPU, StockQuantity: 3}
	require.NoError(t, repo.Create(product))

	ok, err := repo.TryDecrementStock(product.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := repo.FindByID(product.ID)
	assert.Equal(t, 3, got.StockQuantity)
}

func TestProductRepository_TryDecrementStock_UnknownProduct(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	ok, err := repo.TryDecrementStock(9999, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductRepository_TryDecrementStock_ExactStockDrainsToZero(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{Name: "NVMe 2TB", Price: 189990, Category: model.CategoryStorage, StockQuantity: 4}
	require.NoError(t, repo.Create(product))

	ok, err := repo.TryDecrementStock(product.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.FindByID(product.ID)
	assert.Equal(t, 0, got.StockQuantity)

	// Next attempt finds nothing left
	ok, err = repo.TryDecrementStock(product.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductRepository_TryDecrementStock_ConcurrentNeverNegative(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{Name: "RTX 5090", Price: 2899990, Category: model.CategoryGPU, StockQuantity: 5}
	require.NoError(t, repo.Create(product))

	const attempts = 10
	applied := make([]bool, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			applied[i], errs[i] = repo.TryDecrementStock(product.ID, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if applied[i] {
			wins++
		}
	}
	assert.Equal(t, 5, wins)

	got, _ := repo.FindByID(product.ID)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestProductRepository_Delete(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	product := &model.Product{Name: "850W PSU", Price: 159990, Category: model.CategoryPSU, StockQuantity: 12}
	require.NoError(t, repo.Create(product))

	require.NoError(t, repo.Delete(product.ID))

	_, err := repo.FindByID(product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
