package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	apperrors "github.com/pcforge/pcforge-backend/internal/errors"
	"github.com/pcforge/pcforge-backend/internal/middleware"
)

type RateController struct {
	rateService service.RateService
}

func NewRateController(rateService service.RateService) *RateController {
	return &RateController{
		rateService: rateService,
	}
}

// GetDollarRate returns the cached USD exchange rate
// GET /api/v1/indicators/dollar
func (ctrl *RateController) GetDollarRate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	rate, err := ctrl.rateService.GetDollarRate(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRateNotAvailable) {
			log.Warn("Dollar rate not available", nil)
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.IndicatorNotAvailable, "Exchange rate is temporarily unavailable")
			return
		}
		log.Error("Failed to fetch dollar rate", err, nil)
		apperrors.InternalError(c, "Failed to fetch exchange rate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indicator": "dollar",
		"rate":      rate,
	})
}

// RefreshDollarRate forces a refresh from the upstream source (Admin only)
// POST /api/v1/indicators/dollar/refresh
func (ctrl *RateController) RefreshDollarRate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if err := ctrl.rateService.RefreshDollarRate(c.Request.Context()); err != nil {
		log.Error("Manual rate refresh failed", err, nil)
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.IndicatorNotAvailable, "Upstream indicator service is unavailable")
		return
	}

	log.Info("Dollar rate refreshed manually", nil)

	c.JSON(http.StatusOK, gin.H{
		"message": "Exchange rate refreshed",
	})
}
