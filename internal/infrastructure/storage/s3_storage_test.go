package storage

import (
	"context"
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "tickets",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "eu-west-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			_, err := NewS3ObjectStorage(ctx, cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("valid config creates storage", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(ctx, validConfig(), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "tickets", storage.Bucket())
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3ObjectStorage_EmptyKey(t *testing.T) {
	ctx := context.Background()
	storage, err := NewS3ObjectStorage(ctx, validConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, storage.Upload(ctx, "", []byte("x"), "text/plain"), ErrEmptyKey)
	assert.ErrorIs(t, storage.DeleteObject(ctx, ""), ErrEmptyKey)
	_, err = storage.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
