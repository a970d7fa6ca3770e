package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a client-safe message
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError classifies a raw database or service error into a client-safe
// code and message. Sensitive driver details never leave the server.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: notFoundMessage(context),
		}
	}

	// Unique constraint violation (postgres 23505)
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "unique constraint") {
		if strings.Contains(errStr, "email") || strings.Contains(errStr, "idx_users_email") {
			return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already registered"}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
	}

	// Foreign key constraint violation (23503)
	if strings.Contains(errStr, "foreign key constraint") {
		if strings.Contains(errStr, "product_id") {
			return ErrorInfo{Code: ProductNotFound, Message: "Referenced product does not exist"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "Referenced resource does not exist"}
	}

	// Check constraint violation (23514) — quantity and stock guards
	if strings.Contains(errStr, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Value is out of range"}
	}

	// Connectivity failures
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A dependent service is unavailable, please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalDatabaseError,
		Message: "Something went wrong, please try again later",
	}
}

// ParseAndRespond classifies err and writes the error response. The
// statusCode is a fallback; not-found classifications downgrade to 404.
func ParseAndRespond(c *gin.Context, statusCode int, err error, context string) {
	info := ParseError(err, context)
	if info.Code == ResourceNotFound || info.Code == ProductNotFound {
		statusCode = http.StatusNotFound
	}
	RespondWithError(c, statusCode, info.Code, info.Message)
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "product") {
		return "Product not found"
	}
	if strings.Contains(contextLower, "user") {
		return "User not found"
	}
	if strings.Contains(contextLower, "cart") {
		return "Cart line not found"
	}

	return "Requested resource not found"
}
