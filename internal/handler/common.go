package handler

import (
	"errors"
	"net/http"
	"strings"

	"backend/internal/stock"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP statuses. Stock consistency
// violations are conflicts, missing aggregates are 404s, invalid input is a
// 400, anything else is a 500.
func respondError(c *gin.Context, err error) {
	var insufficient *stock.InsufficientStockError
	var belowSold *stock.QuantityBelowSoldError
	var duplicate *stock.DuplicateBatchNumberError
	var inUse *stock.BatchInUseError
	var invalidCharge *stock.InvalidChargeConfigError

	switch {
	case errors.As(err, &insufficient),
		errors.As(err, &belowSold),
		errors.As(err, &duplicate),
		errors.As(err, &inUse):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.As(err, &invalidCharge):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case strings.Contains(err.Error(), "invalid"),
		strings.Contains(err.Error(), "cannot"),
		strings.Contains(err.Error(), "already"),
		strings.Contains(err.Error(), "exceeds"):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// actorID returns the authenticated user id stored by the auth middleware.
func actorID(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
