package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestOK_Envelope(t *testing.T) {
	c, w := newTestContext()
	c.Set(CorrelationIDKey, "corr-123")

	OK(c, gin.H{"balance": "100.0000"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "corr-123", resp.CorrelationID)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestError_AppError(t *testing.T) {
	c, w := newTestContext()

	Error(c, apperror.ErrInsufficientBalance("w-1"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeInsufficientBalance, resp.ErrorCode)
}

func TestError_WrappedAppError(t *testing.T) {
	c, w := newTestContext()

	Error(c, fmt.Errorf("use case: %w", apperror.ErrWalletNotFound("w-2")))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestError_UnknownError(t *testing.T) {
	c, w := newTestContext()

	Error(c, fmt.Errorf("pg connection lost"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pg connection lost")
}
