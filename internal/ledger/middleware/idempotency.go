package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// idempotencyTTL bounds how long a cached response is replayed.
const idempotencyTTL = 24 * time.Hour

// cachedResponse is the serialized form stored in the idempotency cache.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// captureWriter tees the response body so a successful response can be cached.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency enforces the Idempotency-Key header on mutating routes and
// replays the cached response verbatim when the same key is seen again.
// The cache key is scoped to the principal, method and path so distinct
// callers or endpoints never collide. Cache failures degrade to processing
// the request normally.
func Idempotency(cache ports.IdempotencyCache, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			response.Error(c, apperror.ErrIdempotencyKeyRequired())
			c.Abort()
			return
		}

		scope := "anonymous"
		if principal := PrincipalFrom(c); principal != nil {
			scope = principal.UserID.String()
		}
		cacheKey := fmt.Sprintf("%s:%s:%s:%s", scope, c.Request.Method, c.Request.URL.Path, key)

		if raw, err := cache.Get(c.Request.Context(), cacheKey); err != nil {
			log.Warn().Err(err).Msg("idempotency cache unavailable, processing request")
		} else if raw != nil {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.Header("X-Idempotent-Replay", "true")
				c.Data(cached.Status, "application/json", cached.Body)
				c.Abort()
				return
			}
			log.Warn().Str("key", cacheKey).Msg("malformed cached response, processing request")
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		raw, err := json.Marshal(cachedResponse{Status: status, Body: writer.body.Bytes()})
		if err != nil {
			return
		}
		if err := cache.Set(c.Request.Context(), cacheKey, raw, idempotencyTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache idempotent response")
		}
	}
}
