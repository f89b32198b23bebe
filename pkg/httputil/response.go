// Package httputil writes JSON responses and error bodies that carry the
// request ID set by the RequestID middleware.
package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitmatch/pkg/apperror"
)

// RequestIDKey is the gin context key the RequestID middleware stores the
// request ID under.
const RequestIDKey = "request_id"

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: GetRequestID(c),
	})
}

func ValidationError(c *gin.Context, err error) {
	ErrorWithCode(c, http.StatusBadRequest, "validation_error", err.Error())
}

func InternalError(c *gin.Context) {
	ErrorWithCode(c, http.StatusInternalServerError, "internal_error", "internal server error")
}

// HandleError writes an *apperror.AppError with its own status and code.
// Anything else is logged by the Logger middleware through c.Error and
// answered with a 500.
func HandleError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			_ = c.Error(appErr.Err)
		}
		ErrorWithCode(c, appErr.StatusCode, appErr.Code, appErr.Message)
		return
	}
	_ = c.Error(err)
	InternalError(c)
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
