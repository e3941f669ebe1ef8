package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports/mocks"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationID_GeneratesWhenAbsent(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())

	var seenGin, seenCtx string
	router.GET("/test", func(c *gin.Context) {
		seenGin = c.GetString(response.CorrelationIDKey)
		seenCtx, _ = response.FromContext(c.Request.Context())
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.NotEmpty(t, seenGin)
	_, err := uuid.Parse(seenGin)
	assert.NoError(t, err)
	assert.Equal(t, seenGin, seenCtx)
	assert.Equal(t, seenGin, w.Header().Get(HeaderCorrelationID))
}

func TestCorrelationID_HonorsCallerSupplied(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderCorrelationID, "corr-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "corr-42", w.Header().Get(HeaderCorrelationID))
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	log := zerolog.Nop()

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("garbage").Return(nil, errors.New("bad token"))
	log := zerolog.Nop()

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantID := uuid.New()
	principal := &domain.Principal{
		UserID:     uuid.New(),
		Role:       domain.RoleMerchant,
		MerchantID: &merchantID,
	}

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("valid-token").Return(principal, nil)
	log := zerolog.Nop()

	var got *domain.Principal
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, log), func(c *gin.Context) {
		got = PrincipalFrom(c)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, principal.UserID, got.UserID)
	assert.Equal(t, domain.RoleMerchant, got.Role)
}

func TestRequireRole(t *testing.T) {
	router := gin.New()
	router.GET("/admin",
		func(c *gin.Context) {
			c.Set(CtxPrincipal, &domain.Principal{UserID: uuid.New(), Role: domain.RoleVendor})
		},
		RequireRole(domain.RoleAdmin),
		func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) },
	)
	router.GET("/shared",
		func(c *gin.Context) {
			c.Set(CtxPrincipal, &domain.Principal{UserID: uuid.New(), Role: domain.RoleVendor})
		},
		RequireRole(domain.RoleMerchant, domain.RoleVendor),
		func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) },
	)
	router.GET("/unauthenticated",
		RequireRole(domain.RoleAdmin),
		func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shared", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unauthenticated", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery_CapturesPanic(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestMaxBodySize_RejectsOversizedBody(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/test", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(200, gin.H{"ok": true})
	})

	big := strings.Repeat("x", 64)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"data":"`+big+`"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
