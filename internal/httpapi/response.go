// Package httpapi реализует HTTP-поверхность back-office на gin.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// Response — единый конверт ответа API.
type Response struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Code        int    `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Data        any    `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, statusCode int, message string, err error) {
	resp := Response{
		Status:  "error",
		Message: message,
		Code:    statusCode,
	}
	if err != nil {
		resp.Description = err.Error()
		resp.Data = errorData(err)
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

// respondDomainError отображает доменную ошибку в HTTP-статус конверта.
func respondDomainError(c *gin.Context, message string, err error) {
	respondError(c, errorStatus(err), message, err)
}

func errorStatus(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOrderForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized
	case domain.IsInsufficientStock(err),
		errors.Is(err, domain.ErrOrderStatusInvalid),
		errors.Is(err, domain.ErrDateInvalid):
		return http.StatusBadRequest
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrClientRequired,
		domain.ErrItemsRequired,
		domain.ErrItemProductRequired,
		domain.ErrItemQtyInvalid,
		domain.ErrItemPriceInvalid,
		domain.ErrDescriptionRequired,
		domain.ErrBarcodeRequired,
		domain.ErrSectionRequired,
		domain.ErrPriceNegative,
		domain.ErrStockNegative,
		domain.ErrNameRequired,
		domain.ErrLastNameRequired,
		domain.ErrEmailInvalid,
		domain.ErrCPFInvalid,
		domain.ErrPhoneInvalid,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// errorData извлекает структурированные данные из типизированных ошибок.
func errorData(err error) any {
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return gin.H{
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		}
	}

	var empty *domain.EmptyFilterError
	if errors.As(err, &empty) {
		return gin.H{
			"filter": empty.Filter,
			"value":  empty.Value,
		}
	}

	return nil
}
