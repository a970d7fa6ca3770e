package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/cartstream"
	"github.com/pcforge/pcforge-backend/internal/middleware"
	"github.com/pcforge/pcforge-backend/internal/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer in front of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type CartController struct {
	cartService service.CartService
	hub         *websocket.Hub
}

func NewCartController(cartService service.CartService, hub *websocket.Hub) *CartController {
	return &CartController{
		cartService: cartService,
		hub:         hub,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// GetCart returns user's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to cart", nil)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	lines, err := ctrl.cartService.GetLines(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch cart",
		})
		return
	}

	// Calculate total
	total := 0
	for _, line := range lines {
		total += line.Product.Price * line.Quantity
	}

	log.Info("Cart fetched successfully", map[string]interface{}{
		"user_id": userID,
		"count":   len(lines),
		"total":   total,
	})

	c.JSON(http.StatusOK, gin.H{
		"cart_items": lines,
		"count":      len(lines),
		"total":      total,
	})
}

// AddToCart adds item to cart
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to add to cart", nil)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	log.Debug("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	// The cart takes anything with a positive quantity; whether stock
	// covers it is decided at checkout.
	err := ctrl.cartService.AddToCart(userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuantity) {
			log.Warn("Invalid quantity for cart item", map[string]interface{}{
				"user_id":    userID,
				"product_id": req.ProductID,
				"quantity":   req.Quantity,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Quantity must be positive",
			})
			return
		}
		log.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": req.ProductID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add item to cart",
		})
		return
	}

	log.Info("Item added to cart successfully", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart successfully",
	})
}

// GetCartProduct returns the catalog entry behind one cart line
// GET /api/v1/cart/products/:id
func (ctrl *CartController) GetCartProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.cartService.GetProduct(id)
	if err != nil {
		log.Error("Failed to fetch cart product", err, map[string]interface{}{
			"product_id": id,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch product",
		})
		return
	}
	if product == nil {
		// Absence is a normal answer here, not a failure
		c.JSON(http.StatusOK, gin.H{
			"product": nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CartWS streams cart snapshots over a WebSocket
// GET /api/v1/cart/ws
func (ctrl *CartController) CartWS(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized WebSocket attempt", nil)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sub, snapshot, err := ctrl.cartService.ObserveCart(ctx, userID)
	if err != nil {
		log.Error("Failed to start cart observation", err, map[string]interface{}{
			"user_id": userID,
		})
		cancel()
		conn.Close()
		return
	}

	client := websocket.NewClient(ctrl.hub, conn, userID)
	ctrl.hub.Register(client)

	// Current state first, updates after
	if msg, err := websocket.EncodeCartSnapshot(snapshot); err == nil {
		client.Enqueue(msg)
	}

	go forwardCartSnapshots(sub, client)
	go client.WritePump()

	log.Info("Cart stream opened", map[string]interface{}{
		"user_id": userID,
	})

	// Blocks until the peer disconnects
	client.ReadPump()
	cancel()

	log.Info("Cart stream closed", map[string]interface{}{
		"user_id": userID,
	})
}

func forwardCartSnapshots(sub *cartstream.Subscription, client *websocket.Client) {
	for lines := range sub.C {
		msg, err := websocket.EncodeCartSnapshot(lines)
		if err != nil {
			continue
		}
		client.Enqueue(msg)
	}
}
