package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentInput struct {
	Amount decimal.Decimal `json:"amount" binding:"money"`
	Method string          `json:"method" binding:"required,oneof=CASH CARD"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req paymentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidation_FieldErrors(t *testing.T) {
	router := newValidationRouter()

	w := post(router, `{"amount": "12.345", "method": "CHEQUE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "method", resp.Error.Details[1].Field)
	assert.Contains(t, resp.Error.Details[1].Message, "CASH CARD")
}

func TestValidation_Valid(t *testing.T) {
	router := newValidationRouter()
	assert.Equal(t, http.StatusOK, post(router, `{"amount": "58.50", "method": "CASH"}`).Code)
	assert.Equal(t, http.StatusOK, post(router, `{"amount": 20, "method": "CARD"}`).Code)
}

func TestValidation_MalformedBody(t *testing.T) {
	router := newValidationRouter()

	w := post(router, `{"amount": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
}

func TestValidateMoney(t *testing.T) {
	v := validator.New()
	registerValidations(v)

	type input struct {
		Amount decimal.Decimal  `validate:"money"`
		Tip    *decimal.Decimal `validate:"omitempty,money"`
	}
	neg := decimal.RequireFromString("-1")

	assert.NoError(t, v.Struct(input{Amount: decimal.RequireFromString("0.10")}))
	assert.Error(t, v.Struct(input{Amount: decimal.RequireFromString("0.105")}))
	assert.Error(t, v.Struct(input{Amount: decimal.Zero, Tip: &neg}))
}
