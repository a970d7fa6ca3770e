package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setupProductControllerTest(t *testing.T) (*ProductController, *gin.Engine, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	productService := service.NewProductService(productRepo, nil)
	productController := NewProductController(productService)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return productController, router, testDB
}

func createCatalogProduct(t *testing.T, testDB *gorm.DB, name string, price int, category model.ProductCategory) *model.Product {
	product := &model.Product{
		Name:          name,
		Price:         price,
		Category:      category,
		StockQuantity: 10,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func TestProductController_ListProducts_Success(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "Ryzen 7 9800X3D", 479990, model.CategoryCPU)
	createCatalogProduct(t, testDB, "RTX 5080", 1499990, model.CategoryGPU)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, float64(2), response["count"])
}

func TestProductController_ListProducts_CategoryFilter(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "Ryzen 7 9800X3D", 479990, model.CategoryCPU)
	createCatalogProduct(t, testDB, "RTX 5080", 1499990, model.CategoryGPU)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?category=gpu", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Products []model.Product `json:"products"`
		Count    int             `json:"count"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Equal(t, 1, response.Count)
	assert.Equal(t, "RTX 5080", response.Products[0].Name)
}

func TestProductController_ListProducts_SortByPrice(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "RTX 5080", 1499990, model.CategoryGPU)
	createCatalogProduct(t, testDB, "Ryzen 7 9800X3D", 479990, model.CategoryCPU)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?sort=price&order=asc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Products []model.Product `json:"products"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Len(t, response.Products, 2)
	assert.Equal(t, "Ryzen 7 9800X3D", response.Products[0].Name)
}

func TestProductController_GetProductByID_Success(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	product := createCatalogProduct(t, testDB, "NVMe 2TB", 159990, model.CategoryStorage)

	router.GET("/products/:id", controller.GetProductByID)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	fetched, ok := response["product"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, product.Name, fetched["name"])
}

func TestProductController_GetProductByID_NotFound(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.GET("/products/:id", controller.GetProductByID)

	req := httptest.NewRequest(http.MethodGet, "/products/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Product not found", response["error"])
}

func TestProductController_GetProductByID_InvalidID(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.GET("/products/:id", controller.GetProductByID)

	req := httptest.NewRequest(http.MethodGet, "/products/invalid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductController_CreateProduct_Success(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.POST("/products", controller.CreateProduct)

	reqBody := CreateProductRequest{
		Name:          "DDR5 32GB Kit",
		Description:   "2x16GB 6000MT/s",
		Price:         129990,
		Category:      model.CategoryRAM,
		StockQuantity: 25,
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Product model.Product `json:"product"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.NotZero(t, response.Product.ID)
	// No catalog sync configured, so the product stays local
	assert.Equal(t, model.SyncStatusLocalOnly, response.Product.SyncStatus)
}

func TestProductController_CreateProduct_InvalidRequest(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.POST("/products", controller.CreateProduct)

	tests := []struct {
		name    string
		reqBody map[string]interface{}
	}{
		{
			name:    "Missing name",
			reqBody: map[string]interface{}{"price": 1000, "category": "cpu"},
		},
		{
			name:    "Missing price",
			reqBody: map[string]interface{}{"name": "Thing", "category": "cpu"},
		},
		{
			name:    "Negative price",
			reqBody: map[string]interface{}{"name": "Thing", "price": -1, "category": "cpu"},
		},
		{
			name:    "Negative stock",
			reqBody: map[string]interface{}{"name": "Thing", "price": 1000, "category": "cpu", "stock_quantity": -5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonBody, _ := json.Marshal(tt.reqBody)
			req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBuffer(jsonBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestProductController_UpdateProduct_Success(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "Old Name", 100000, model.CategoryCase)

	router.PUT("/products/:id", controller.UpdateProduct)

	reqBody := CreateProductRequest{
		Name:          "New Name",
		Price:         120000,
		Category:      model.CategoryCase,
		StockQuantity: 7,
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPut, "/products/1", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var fresh model.Product
	require.NoError(t, testDB.First(&fresh, 1).Error)
	assert.Equal(t, "New Name", fresh.Name)
	assert.Equal(t, 120000, fresh.Price)
}

func TestProductController_UpdateProduct_NotFound(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.PUT("/products/:id", controller.UpdateProduct)

	reqBody := CreateProductRequest{
		Name:     "Ghost",
		Price:    1000,
		Category: model.CategoryCPU,
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPut, "/products/9999", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_DeleteProduct_Success(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "Doomed", 100000, model.CategoryCooling)

	router.DELETE("/products/:id", controller.DeleteProduct)

	req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	testDB.Model(&model.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestProductController_DeleteProduct_NotFound(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.DELETE("/products/:id", controller.DeleteProduct)

	req := httptest.NewRequest(http.MethodDelete, "/products/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_ExportCatalog_Success(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)

	createCatalogProduct(t, testDB, "Ryzen 7 9800X3D", 479990, model.CategoryCPU)

	router.GET("/products/export", controller.ExportCatalog)

	req := httptest.NewRequest(http.MethodGet, "/products/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "catalog-")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Catalog")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ryzen 7 9800X3D", rows[1][1])
}
