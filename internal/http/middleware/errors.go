package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// CodeFor maps an HTTP status onto the error code sent with it.
func CodeFor(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	}
	if status >= 500 {
		return CodeInternal
	}
	return ""
}

// AbortWithError writes the error body and stops the handler chain.
func AbortWithError(c *gin.Context, status int, code, message, details string) {
	if code == "" {
		code = CodeFor(status)
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:     message,
		Code:      code,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func abort(c *gin.Context, status int, message string) {
	AbortWithError(c, status, "", message, "")
}
