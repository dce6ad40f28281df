package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(envOf(nil))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Empty(t, cfg.DBDriver)
		assert.Nil(t, cfg.IssuerURL)
		assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	})

	t.Run("full", func(t *testing.T) {
		cfg, err := loadConfig(envOf(map[string]string{
			"STOREFRONT_ADDR":       ":9000",
			"STOREFRONT_GRPC_ADDR":  ":9001",
			"STOREFRONT_DB_DRIVER":  "postgres",
			"STOREFRONT_DB_DSN":     "postgres://localhost/storefront",
			"STOREFRONT_ISSUER_URL": "https://auth.example.com/",
			"STOREFRONT_AUDIENCE":   "storefront",
			"STOREFRONT_REDIS_ADDR": "localhost:6379",
			"STOREFRONT_LOG_LEVEL":  "debug",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Addr)
		assert.Equal(t, ":9001", cfg.GRPCAddr)
		assert.Equal(t, "https://auth.example.com/", cfg.IssuerURL.String())
		assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	})

	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{name: "bad log level", vars: map[string]string{"STOREFRONT_LOG_LEVEL": "loud"}, wantErr: "STOREFRONT_LOG_LEVEL"},
		{name: "unknown driver", vars: map[string]string{"STOREFRONT_DB_DRIVER": "mysql", "STOREFRONT_DB_DSN": "x"}, wantErr: "unsupported driver"},
		{name: "driver without dsn", vars: map[string]string{"STOREFRONT_DB_DRIVER": "sqlite3"}, wantErr: "STOREFRONT_DB_DSN is required"},
		{name: "relative issuer", vars: map[string]string{"STOREFRONT_ISSUER_URL": "auth.example.com", "STOREFRONT_AUDIENCE": "a"}, wantErr: "not an absolute URL"},
		{name: "issuer without audience", vars: map[string]string{"STOREFRONT_ISSUER_URL": "https://auth.example.com/"}, wantErr: "STOREFRONT_AUDIENCE is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(envOf(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
