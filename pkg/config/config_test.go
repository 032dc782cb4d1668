package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DEFAULT_USER_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, int64(1), cfg.App.DefaultUserID)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.Store.AutoMigrate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_DSN", ":memory:")
	t.Setenv("DEFAULT_USER_ID", "7")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.SQLite.DSN)
	assert.Equal(t, int64(7), cfg.App.DefaultUserID)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.False(t, cfg.Store.AutoMigrate)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/w", DBName: "farmacia", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fw@db:5432/farmacia?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
