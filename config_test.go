package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.False(t, c.IsProd())
}

func TestLoadConfigNeedsFileInProduction(t *testing.T) {
	_, err := loadConfig(t.TempDir(), true)
	assert.Error(t, err)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	file := `{
		"env": "prod",
		"port": 8080,
		"session_ttl": "2h",
		"store": {"driver": "postgres"},
		"database": {"host": "db.internal", "name": "social"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".config.json"), []byte(file), 0o600))
	t.Setenv("SOCIAL_DATABASE_PASSWORD", "from-env")
	t.Setenv("SOCIAL_PORT", "9090")

	c, err := loadConfig(dir, true)
	require.NoError(t, err)
	assert.True(t, c.IsProd())
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
	assert.Equal(t, "postgres", c.Store.Driver)
	assert.Equal(t, "db.internal", c.Database.Host)
	assert.Equal(t, 5432, c.Database.Port)
	assert.Equal(t, "from-env", c.Database.Password)
	assert.Contains(t, c.Database.ConnectionInfo(), "password=from-env")
	assert.Equal(t, "localhost:6379", c.Redis.Address)
}

func TestOpenTreeDrivers(t *testing.T) {
	c := DefaultConfig()
	tree, err := openTree(c, false)
	require.NoError(t, err)
	require.NoError(t, tree.Close())

	c.Store.Driver = "sqlite"
	c.Store.SQLitePath = filepath.Join(t.TempDir(), "social.db")
	tree, err = openTree(c, true)
	require.NoError(t, err)
	require.NoError(t, tree.Close())

	c.Store.Driver = "cassandra"
	_, err = openTree(c, false)
	assert.Error(t, err)
}
