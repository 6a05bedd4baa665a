package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "assetledger.sqlite3", c.DBPath)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "ORG001", c.AdminOrg)
	assert.True(t, c.MetricsEnabled)
	assert.Equal(t, 6, c.GroupIDWidth)
	assert.Equal(t, 8, c.MemberIDWidth)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL)
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/ledger.db")
	t.Setenv("GROUP_ID_WIDTH", "4")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	c, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ledger.db", c.DBPath)
	assert.Equal(t, 4, c.GroupIDWidth)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	assert.False(t, c.MetricsEnabled)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_ORG=ORG777\n"), 0o600))
	t.Setenv("ADMIN_ORG", "")
	os.Unsetenv("ADMIN_ORG")

	n, err := LoadEnvFiles([]string{path, filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ORG777", os.Getenv("ADMIN_ORG"))
}

func TestValidate(t *testing.T) {
	t.Setenv("MEMBER_ID_WIDTH", "0")
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEMBER_ID_WIDTH")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}
