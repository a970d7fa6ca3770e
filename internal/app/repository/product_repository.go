package repository

import (
	"errors"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductSort string

const (
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortName      ProductSort = "name"
)

type ProductFilter struct {
	Category      *model.ProductCategory
	Search        string
	SortBy        ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindWithFilter(filter ProductFilter) ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	Update(product *model.Product) error
	Delete(id uint) error
	BulkCreate(products []model.Product, batchSize int) error
	TryDecrementStock(id uint, quantity int) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":     product.Name,
			"category": product.Category,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	return r.FindWithFilter(ProductFilter{})
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":  filter.Category,
		"search":    filter.Search,
		"sort_by":   filter.SortBy,
		"ascending": filter.SortAscending,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	order := "created_at DESC"
	switch filter.SortBy {
	case ProductSortPrice:
		order = "price DESC"
		if filter.SortAscending {
			order = "price ASC"
		}
	case ProductSortName:
		order = "name ASC"
		if !filter.SortAscending {
			order = "name DESC"
		}
	case ProductSortCreatedAt:
		if filter.SortAscending {
			order = "created_at ASC"
		}
	}
	query = query.Order(order)

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.Search,
		})
		return nil, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	if err := r.db.Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// BulkCreate inserts products in batches, for catalog imports.
func (r *productRepository) BulkCreate(products []model.Product, batchSize int) error {
	if err := r.db.CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}

	logger.Debug("Products bulk created in database", map[string]interface{}{
		"count": len(products),
	})
	return nil
}

// TryDecrementStock decrements a product's stock by quantity only if enough
// stock remains, as a single conditional UPDATE. Returns false without
// mutating anything when stock is insufficient or the product is unknown.
// The guard in the WHERE clause is the whole oversell defense: the check
// and the decrement are one indivisible statement, so no lock is held
// across an I/O round-trip.
func (r *productRepository) TryDecrementStock(id uint, quantity int) (bool, error) {
	logger.Debug("Attempting conditional stock decrement", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})

	result := r.db.Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement product stock", result.Error, map[string]interface{}{
			"product_id": id,
			"quantity":   quantity,
		})
		return false, result.Error
	}

	applied := result.RowsAffected == 1
	logger.Debug("Conditional stock decrement finished", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
		"applied":    applied,
	})
	return applied, nil
}
