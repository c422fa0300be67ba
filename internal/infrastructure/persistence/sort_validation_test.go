package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	cases := map[string]string{
		"":                         "DESC",
		"asc":                      "ASC",
		"  Asc ":                   "ASC",
		"desc":                     "DESC",
		"sideways":                 "DESC",
		"ASC; DELETE FROM orders":  "DESC",
		"asc nulls first, id desc": "DESC",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateSortOrder(in), "input %q", in)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "created_at"},
		{"total", "total"},
		{" closed_at ", "closed_at"},
		{"TOTAL", "created_at"},
		{"tenant_id", "created_at"},
		{"total; DROP TABLE payments", "created_at"},
		{"total, (SELECT 1)", "created_at"},
		{"status'--", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.in, OrderSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "created_at DESC, id DESC", orderClause("", "", OrderSortFields, "created_at"))
	assert.Equal(t, "total ASC, id ASC", orderClause("total", "asc", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC, id DESC", orderClause("tenant_id", "asc; --", OrderSortFields, "created_at"))
}
