// Package response provides the HTTP response envelopes shared by both
// services and the mapping from apperror kinds to status codes.
package response

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// CorrelationIDKey is the gin context key under which middleware stores the
// request correlation id.
const CorrelationIDKey = "correlation_id"

type ctxKey string

// CtxCorrelationID keys the correlation id inside a request context, so that
// code below the HTTP layer can stamp it onto events and logs.
const CtxCorrelationID ctxKey = "correlation_id"

// FromContext returns the correlation id stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(CtxCorrelationID).(string)
	return s, ok && s != ""
}

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data          interface{} `json:"data"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope(c, data))
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope(c, data))
}

// Error sends an error response. AppErrors map to their declared status and
// code; anything else is a 500 with no internal detail leaked.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{
			ErrorCode:     appErr.Code,
			Message:       appErr.Message,
			CorrelationID: correlationID(c),
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		ErrorCode:     apperror.CodeInternal,
		Message:       "Internal server error",
		CorrelationID: correlationID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

func envelope(c *gin.Context, data interface{}) SuccessResponse {
	return SuccessResponse{
		Data:          data,
		CorrelationID: correlationID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

func correlationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
