package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("CASCADE_CONCURRENCY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("DOCUMENT_STORE", "")
	t.Setenv("user", "app")
	t.Setenv("password", "pw")
	t.Setenv("host", "db.local")
	t.Setenv("port", "5432")
	t.Setenv("dbname", "pages")
	t.Setenv("DB_SSLMODE", "disable")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 8, cfg.CascadeConcurrency)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://app:pw@db.local:5432/pages?sslmode=disable", cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://x/y")
	t.Setenv("CASCADE_CONCURRENCY", "3")
	t.Setenv("DOCUMENT_STORE", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://x/y", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.CascadeConcurrency)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, _, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadConcurrency(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CASCADE_CONCURRENCY", "zero")
	_, _, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CASCADE_CONCURRENCY", "")
	t.Setenv("DOCUMENT_STORE", "mongo")
	_, _, err := Load()
	assert.ErrorContains(t, err, "DOCUMENT_STORE")
}
