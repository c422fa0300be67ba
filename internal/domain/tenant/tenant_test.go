package tenant

import (
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tn, err := New("Casa Lisboa", "casa-lisboa")
	require.NoError(t, err)
	assert.True(t, tn.IsActive())

	for _, slug := range []string{"", "A", "Casa", "-x", "has space"} {
		_, err := New("x", slug)
		assert.ErrorIs(t, err, shared.ErrInvalidInput, slug)
	}
	_, err = New("", "ok-slug")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
