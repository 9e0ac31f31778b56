package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Equal(t, "memory", cfg.StorageDriver)
	require.Empty(t, cfg.ProxyURL)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("P2P_HTTP_ADDR", ":18080")
	t.Setenv("P2P_STORAGE_DRIVER", "sqlite")
	t.Setenv("P2P_SQLITE_PATH", "/tmp/test.db")
	t.Setenv("P2P_PROXY_URL", "https://proxy.example")

	cfg := ConfigFromEnv()
	require.Equal(t, ":18080", cfg.HTTPAddr)
	require.Equal(t, "sqlite", cfg.StorageDriver)
	require.Equal(t, "/tmp/test.db", cfg.SQLitePath)
	require.Equal(t, "https://proxy.example", cfg.ProxyURL)
	// Незаданные ключи сохраняют значения по умолчанию.
	require.Equal(t, ":9090", cfg.MetricsAddr)
}
