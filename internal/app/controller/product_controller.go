package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type CreateProductRequest struct {
	Name          string                `json:"name" binding:"required"`
	Description   string                `json:"description"`
	Price         int                   `json:"price" binding:"required,gt=0"`
	Category      model.ProductCategory `json:"category" binding:"required"`
	StockQuantity int                   `json:"stock_quantity" binding:"gte=0"`
	ImageURL      string                `json:"image_url"`
	GalleryImages []string              `json:"gallery_images"`
}

// parseIDParam reads a numeric path parameter, responding 400 on junk
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	log := middleware.GetLoggerFromContext(c)

	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		log.Warn("Invalid ID parameter", map[string]interface{}{
			"param": name,
			"value": idStr,
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ID",
		})
		return 0, false
	}
	return uint(id), true
}

// ListProducts returns the catalog, filtered and sorted
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts := service.ProductListOptions{
		Search:        c.Query("search"),
		SortAscending: c.Query("order") == "asc",
	}

	if categoryStr := c.Query("category"); categoryStr != "" {
		category := model.ProductCategory(categoryStr)
		opts.Category = &category
	}

	switch c.Query("sort") {
	case "price":
		opts.Sort = repository.ProductSortPrice
	case "name":
		opts.Sort = repository.ProductSortName
	default:
		opts.Sort = repository.ProductSortCreatedAt
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset > 0 {
			opts.Offset = offset
		}
	}

	products, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch products",
		})
		return
	}

	log.Info("Products fetched successfully", map[string]interface{}{
		"count": len(products),
	})

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch product",
		})
		return
	}

	log.Info("Product fetched successfully", map[string]interface{}{
		"product_id": product.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	log.Debug("Creating product", map[string]interface{}{
		"name":     req.Name,
		"category": req.Category,
		"price":    req.Price,
	})

	product := &model.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		GalleryImages: req.GalleryImages,
	}

	if err := ctrl.productService.CreateProduct(c.Request.Context(), product); err != nil {
		if errors.Is(err, service.ErrInvalidPrice) || errors.Is(err, service.ErrInvalidStock) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create product",
		})
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id":  product.ID,
		"sync_status": product.SyncStatus,
	})

	c.JSON(http.StatusCreated, gin.H{
		"product": product,
	})
}

// UpdateProduct updates an existing product (Admin only)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product := &model.Product{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		GalleryImages: req.GalleryImages,
	}

	if err := ctrl.productService.UpdateProduct(c.Request.Context(), product); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		if errors.Is(err, service.ErrInvalidPrice) || errors.Is(err, service.ErrInvalidStock) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update product",
		})
		return
	}

	log.Info("Product updated successfully", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// DeleteProduct removes a product (Admin only)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete product",
		})
		return
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// ExportCatalog streams the catalog as a spreadsheet (Admin only)
// GET /api/v1/products/export
func (ctrl *ProductController) ExportCatalog(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	data, err := ctrl.productService.ExportCatalogXLSX()
	if err != nil {
		log.Error("Failed to export catalog", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to export catalog",
		})
		return
	}

	filename := fmt.Sprintf("catalog-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
