package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tably-system/internal/auth"
	"tably-system/internal/billing"
	"tably-system/internal/catalog"
)

func successResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
	}
}

// respondError maps the service error taxonomy onto HTTP statuses. Unknown
// errors are reported as a generic database error without leaking detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, billing.ErrInvalidArgument), errors.Is(err, catalog.ErrInvalidArgument),
		errors.Is(err, billing.ErrItemUnavailable):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, billing.ErrBillClosed):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
	}
}
