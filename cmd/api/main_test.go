package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("CI", "")
	t.Setenv("ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_URL", "")
	t.Setenv("S3_BUCKET_NAME", "")
	t.Setenv("LOG_LEVEL", "error")

	t.Run("invalid configuration", func(t *testing.T) {
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "api.db"))
		t.Setenv("JWT_SECRET", "")

		err := run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})

	t.Run("unreachable database", func(t *testing.T) {
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "missing", "api.db"))
		t.Setenv("JWT_SECRET", "test-secret-test-secret-test-secret")

		err := run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to database")
	})
}
