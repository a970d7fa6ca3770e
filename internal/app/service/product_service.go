package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/pkg/catalogsync"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidStock    = errors.New("stock quantity must not be negative")
)

type ProductListOptions struct {
	Category      *model.ProductCategory
	Search        string
	Sort          repository.ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

// CatalogPusher pushes a locally created product to the central catalog
type CatalogPusher interface {
	PushProduct(ctx context.Context, payload catalogsync.ProductPayload) error
}

// ProductService owns the catalog. Writes are two-tier: the product is
// stored locally first, then pushed to the central catalog. A failed
// push keeps the product with SyncStatus local_only so it can be
// retried, never blocking the local write.
type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, product *model.Product) error
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(id uint) error
	ExportCatalogXLSX() ([]byte, error)
}

type productService struct {
	productRepo repository.ProductRepository
	catalog     CatalogPusher
}

// NewProductService creates the catalog service. catalog may be nil, in
// which case sync is disabled and every write stays local_only.
func NewProductService(productRepo repository.ProductRepository, catalog CatalogPusher) ProductService {
	return &productService{
		productRepo: productRepo,
		catalog:     catalog,
	}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"category": opts.Category,
		"search":   opts.Search,
		"sort":     opts.Sort,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})

	filter := repository.ProductFilter{
		Category:      opts.Category,
		Search:        opts.Search,
		SortBy:        opts.Sort,
		SortAscending: opts.SortAscending,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	}

	products, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	logger.Debug("Fetching product by ID", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func validateProduct(product *model.Product) error {
	if product.Price < 0 {
		return ErrInvalidPrice
	}
	if product.StockQuantity < 0 {
		return ErrInvalidStock
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, product *model.Product) error {
	logger.Info("Creating product", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
	})

	if err := validateProduct(product); err != nil {
		return err
	}

	// Local write first; the push can fail without losing the product.
	product.SyncStatus = model.SyncStatusLocalOnly
	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	s.pushToCatalog(ctx, product)
	return nil
}

func (s *productService) UpdateProduct(ctx context.Context, product *model.Product) error {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := validateProduct(product); err != nil {
		return err
	}

	existing, err := s.productRepo.FindByID(product.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	product.CreatedAt = existing.CreatedAt
	product.SyncStatus = model.SyncStatusLocalOnly
	if err := s.productRepo.Update(product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	s.pushToCatalog(ctx, product)
	return nil
}

func (s *productService) DeleteProduct(id uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	return s.productRepo.Delete(id)
}

// pushToCatalog attempts the second tier of the write. On success the
// product is marked synced; on failure it stays local_only and the
// failure is logged, not returned.
func (s *productService) pushToCatalog(ctx context.Context, product *model.Product) {
	if s.catalog == nil {
		logger.Debug("Catalog sync disabled, product stays local-only", map[string]interface{}{
			"product_id": product.ID,
		})
		return
	}

	payload := catalogsync.ProductPayload{
		LocalID:       product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.Price,
		Category:      string(product.Category),
		StockQuantity: product.StockQuantity,
		ImageURL:      product.ImageURL,
		GalleryImages: product.GalleryImages,
	}

	if err := s.catalog.PushProduct(ctx, payload); err != nil {
		logger.Warn("Catalog push failed, product kept local-only", map[string]interface{}{
			"product_id": product.ID,
			"error":      err.Error(),
		})
		return
	}

	product.SyncStatus = model.SyncStatusSynced
	if err := s.productRepo.Update(product); err != nil {
		logger.Error("Failed to mark product as synced", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return
	}

	logger.Info("Product pushed to central catalog", map[string]interface{}{
		"product_id": product.ID,
	})
}

var catalogExportHeaders = []string{
	"ID", "Name", "Description", "Price", "Category", "Stock", "Sync Status", "Created At",
}

// ExportCatalogXLSX renders the full catalog as a spreadsheet for
// back-office use.
func (s *productService) ExportCatalogXLSX() ([]byte, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		logger.Error("Failed to load products for export", err)
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Catalog"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range catalogExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, product := range products {
		values := []interface{}{
			product.ID,
			product.Name,
			product.Description,
			product.Price,
			string(product.Category),
			product.StockQuantity,
			string(product.SyncStatus),
			product.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	logger.Info("Catalog exported", map[string]interface{}{
		"count": len(products),
	})
	return buf.Bytes(), nil
}
