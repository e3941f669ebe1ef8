package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	redisStore "github.com/TrulyGourav/OrchexPay/internal/ledger/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdempotencyRouter(t *testing.T, handled *atomic.Int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := redisStore.NewIdempotencyCache(client)

	r := gin.New()
	r.POST("/credit", middleware.Idempotency(cache, zerolog.Nop()), func(c *gin.Context) {
		n := handled.Add(1)
		c.JSON(http.StatusCreated, gin.H{"attempt": n})
	})
	return r
}

func TestIdempotency_MissingKeyRejected(t *testing.T) {
	var handled atomic.Int64
	router := setupIdempotencyRouter(t, &handled)

	req := httptest.NewRequest(http.MethodPost, "/credit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), handled.Load())
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	var handled atomic.Int64
	router := setupIdempotencyRouter(t, &handled)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/credit", nil)
	req.Header.Set("Idempotency-Key", "idem-1")
	router.ServeHTTP(first, req)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, int64(1), handled.Load())

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/credit", nil)
	req.Header.Set("Idempotency-Key", "idem-1")
	router.ServeHTTP(second, req)

	// Handler must not run again; body and status replay verbatim.
	assert.Equal(t, int64(1), handled.Load())
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
}

func TestIdempotency_DistinctKeysProcessedSeparately(t *testing.T) {
	var handled atomic.Int64
	router := setupIdempotencyRouter(t, &handled)

	for _, key := range []string{"idem-a", "idem-b"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/credit", nil)
		req.Header.Set("Idempotency-Key", key)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Equal(t, int64(2), handled.Load())
}

func TestIdempotency_ErrorResponsesNotCached(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redisStore.NewIdempotencyCache(client)

	var handled atomic.Int64
	r := gin.New()
	r.POST("/credit", middleware.Idempotency(cache, zerolog.Nop()), func(c *gin.Context) {
		if handled.Add(1) == 1 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient balance"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/credit", nil)
	req.Header.Set("Idempotency-Key", "retry-1")
	r.ServeHTTP(first, req)
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	// A retry after a failure must reach the handler again.
	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/credit", nil)
	req.Header.Set("Idempotency-Key", "retry-1")
	r.ServeHTTP(second, req)

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, int64(2), handled.Load())
}
