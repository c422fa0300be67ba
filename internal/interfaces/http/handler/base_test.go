package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/dto"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", shared.ErrOrderNotFound, http.StatusNotFound, shared.CodeOrderNotFound},
		{"wrapped conflict", fmt.Errorf("save order: %w", shared.ErrConcurrentModification), http.StatusConflict, shared.CodeConcurrentModification},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, shared.ErrForbidden.Code},
		{"missing tenant", shared.ErrMissingTenantContext, http.StatusUnauthorized, shared.CodeMissingTenantContext},
		{"insufficient amount", shared.NewDomainError(shared.CodeInsufficientAmount, "short"), http.StatusBadRequest, shared.CodeInsufficientAmount},
		{"duplicate key", payment.ErrDuplicateIdempotencyKey, http.StatusConflict, payment.ErrDuplicateIdempotencyKey.Code},
		{"unmapped domain code", shared.NewDomainError("REDIRECT_CYCLE", "loop"), http.StatusUnprocessableEntity, "REDIRECT_CYCLE"},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, tt.wantCode, info.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, info.Message, "connection refused")
			}
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	c, w := newTestContext()
	(&BaseHandler{}).HandleError(c, nil)
	assert.Zero(t, w.Body.Len())
}

func TestScope(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext()
	_, ok := h.Scope(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = newTestContext()
	want := shared.NewScope(uuid.New(), uuid.New())
	c.Set(middleware.ScopeKey, want)
	got, ok := h.Scope(c)
	assert.True(t, ok)
	assert.Equal(t, want.TenantID, got.TenantID)
}

func TestParamID(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	c, _ := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.ParamID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	c, w := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	_, ok = h.ParamID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
}

func TestSuccessWithMeta(t *testing.T) {
	c, w := newTestContext()
	(&BaseHandler{}).SuccessWithMeta(c, []int{1, 2}, 45, 2, 20)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
