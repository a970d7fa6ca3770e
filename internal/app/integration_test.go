package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pcforge/pcforge-backend/internal/app/controller"
	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/cartstream"
	"github.com/pcforge/pcforge-backend/internal/db"
	"github.com/pcforge/pcforge-backend/internal/middleware"
	"github.com/pcforge/pcforge-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type TestServer struct {
	Router      *gin.Engine
	DB          *gorm.DB
	AuthService service.AuthService
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)

	broker := cartstream.NewBroker()
	hub := websocket.NewHub()

	authService := service.NewAuthService(
		userRepo,
		"test-secret",
		15*time.Minute,
		7*24*time.Hour,
	)
	productService := service.NewProductService(productRepo, nil)
	cartService := service.NewCartService(cartRepo, productRepo, broker)
	checkoutService := service.NewCheckoutService(cartRepo, productRepo, broker)

	authController := controller.NewAuthController(authService, 15*time.Minute)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, hub)
	checkoutController := controller.NewCheckoutController(checkoutService)

	authMiddleware := middleware.NewAuthMiddleware("test-secret")

	router := gin.New()

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.GET("/me", authMiddleware.Authenticate(), authController.GetMe)
	}

	products := router.Group("/api/v1/products")
	{
		products.GET("", productController.ListProducts)
		products.GET("/:id", productController.GetProductByID)
		products.POST("", authMiddleware.Authenticate(), authMiddleware.RequireRole("admin"), productController.CreateProduct)
	}

	cart := router.Group("/api/v1/cart")
	cart.Use(authMiddleware.Authenticate())
	{
		cart.GET("", cartController.GetCart)
		cart.POST("", cartController.AddToCart)
		cart.GET("/products/:id", cartController.GetCartProduct)
	}

	checkout := router.Group("/api/v1/checkout")
	checkout.Use(authMiddleware.Authenticate())
	{
		checkout.POST("", checkoutController.Checkout)
	}

	return &TestServer{
		Router:      router,
		DB:          testDB,
		AuthService: authService,
	}
}

func (ts *TestServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func TestCompleteShoppingJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	// 1. Register a buyer
	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Test Buyer",
		"address":  "Av. Providencia 123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var registerResp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registerResp))
	buyerToken := registerResp.Tokens.AccessToken
	require.NotEmpty(t, buyerToken)

	// 2. Register an admin and promote them directly in the store
	w = ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
		"name":     "Catalog Admin",
		"address":  "Av. Apoquindo 456",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, ts.DB.Model(&model.User{}).
		Where("email = ?", "admin@example.com").
		Update("role", model.RoleAdmin).Error)

	w = ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	adminToken := loginResp.Tokens.AccessToken

	// 3. Admin stocks the catalog
	w = ts.do(http.MethodPost, "/api/v1/products", adminToken, map[string]interface{}{
		"name":           "Ryzen 7 9800X3D",
		"description":    "8-core gaming CPU",
		"price":          479990,
		"category":       "cpu",
		"stock_quantity": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp struct {
		Product model.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	productID := createResp.Product.ID

	// Buyer cannot create products
	w = ts.do(http.MethodPost, "/api/v1/products", buyerToken, map[string]interface{}{
		"name": "Nope", "price": 1, "category": "cpu",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 4. Buyer adds the product twice; quantities accumulate in one line
	for range [2]struct{}{} {
		w = ts.do(http.MethodPost, "/api/v1/cart", buyerToken, map[string]interface{}{
			"product_id": productID,
			"quantity":   1,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = ts.do(http.MethodGet, "/api/v1/cart", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cartResp struct {
		Count int `json:"count"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Equal(t, 1, cartResp.Count)
	assert.Equal(t, 959980, cartResp.Total)

	// 5. Checkout fulfills the line and clears the cart
	w = ts.do(http.MethodPost, "/api/v1/checkout", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var checkoutResp struct {
		Result service.CheckoutResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkoutResp))
	assert.Equal(t, 1, checkoutResp.Result.Fulfilled)
	assert.Equal(t, 0, checkoutResp.Result.Rejected)

	var fresh model.Product
	require.NoError(t, ts.DB.First(&fresh, productID).Error)
	assert.Equal(t, 1, fresh.StockQuantity)

	w = ts.do(http.MethodGet, "/api/v1/cart", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Equal(t, 0, cartResp.Count)

	// 6. A second checkout for more than the remaining stock is rejected
	// per line but still clears the cart
	w = ts.do(http.MethodPost, "/api/v1/cart", buyerToken, map[string]interface{}{
		"product_id": productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/checkout", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkoutResp))
	assert.Equal(t, 0, checkoutResp.Result.Fulfilled)
	assert.Equal(t, 1, checkoutResp.Result.Rejected)
	require.Len(t, checkoutResp.Result.Lines, 1)
	assert.Equal(t, service.ReasonInsufficientStock, checkoutResp.Result.Lines[0].Reason)

	require.NoError(t, ts.DB.First(&fresh, productID).Error)
	assert.Equal(t, 1, fresh.StockQuantity)

	// 7. Unauthenticated requests are refused
	w = ts.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMeRoundTrip(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "profile@example.com",
		"password": "password123",
		"name":     "Profile User",
		"address":  "Calle Falsa 123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var registerResp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registerResp))

	w = ts.do(http.MethodGet, "/api/v1/auth/me", registerResp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var meResp struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meResp))
	assert.Equal(t, "profile@example.com", meResp.User.Email)
	assert.Equal(t, "Profile User", meResp.User.Name)
}
