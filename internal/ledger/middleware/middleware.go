package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderCorrelationID carries the caller-supplied correlation id.
	HeaderCorrelationID = "X-Correlation-ID"

	// HeaderIdempotencyKey is required on every mutating ledger route.
	HeaderIdempotencyKey = "Idempotency-Key"

	// Context keys
	CtxPrincipal = "principal"
)

// CorrelationID creates a middleware that attaches a correlation id to every
// request. A caller-supplied X-Correlation-ID is honored; otherwise a fresh
// one is generated. The id is stored on the gin context, on the request
// context for the service layer, and echoed back on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(response.CorrelationIDKey, id)
		ctx := context.WithValue(c.Request.Context(), response.CtxCorrelationID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderCorrelationID, id)

		c.Next()
	}
}

// JWTAuth creates a middleware that validates bearer tokens and stores the
// resolved principal on the context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		principal, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			log.Debug().Err(err).Msg("token validation failed")
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Next()
	}
}

// RequireRole creates a middleware that rejects principals whose role is not
// in the allowed set. It must run after JWTAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		response.Error(c, apperror.ErrForbidden("insufficient role"))
		c.Abort()
	}
}

// PrincipalFrom returns the authenticated principal stored by JWTAuth, or nil.
func PrincipalFrom(c *gin.Context) *domain.Principal {
	v, exists := c.Get(CtxPrincipal)
	if !exists {
		return nil
	}
	principal, ok := v.(*domain.Principal)
	if !ok {
		return nil
	}
	return principal
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("correlation_id", c.GetString(response.CorrelationIDKey)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": apperror.CodeInternal,
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
