package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/middleware"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

// Checkout converts the user's cart into stock decrements and reports
// per-line outcomes. The call succeeds (200) even when some or all
// lines are rejected; only a storage failure on the cart itself is an
// error, and in that case the cart is untouched and the call can be
// retried.
// POST /api/v1/checkout
func (ctrl *CheckoutController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized checkout attempt", nil)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	result, err := ctrl.checkoutService.Checkout(userID)
	if err != nil {
		log.Error("Checkout failed", err, map[string]interface{}{
			"user_id": userID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Checkout failed, cart is unchanged; please retry",
		})
		return
	}

	log.Info("Checkout completed", map[string]interface{}{
		"user_id":   userID,
		"fulfilled": result.Fulfilled,
		"rejected":  result.Rejected,
	})

	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}
