package app

import "os"

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// StorageDriver выбирает реализацию репозитория: memory, postgres, sqlite.
	StorageDriver string
	PostgresDSN   string
	SQLitePath    string

	UploadDir string

	// ProxyURL — адрес прокси Bastyon; пусто — профили и подписи
	// обслуживает mock (режим разработки).
	ProxyURL string

	// KafkaBrokers — список брокеров через запятую; пусто — события не публикуются.
	KafkaBrokers string
}

// DefaultConfig возвращает значения для локальной разработки.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":8080",
		MetricsAddr:   ":9090",
		StorageDriver: "memory",
		SQLitePath:    "p2p.db",
		UploadDir:     "uploads",
	}
}

// ConfigFromEnv читает настройки из окружения поверх значений по умолчанию.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	setFromEnv(&cfg.HTTPAddr, "P2P_HTTP_ADDR")
	setFromEnv(&cfg.MetricsAddr, "P2P_METRICS_ADDR")
	setFromEnv(&cfg.StorageDriver, "P2P_STORAGE_DRIVER")
	setFromEnv(&cfg.PostgresDSN, "P2P_POSTGRES_DSN")
	setFromEnv(&cfg.SQLitePath, "P2P_SQLITE_PATH")
	setFromEnv(&cfg.UploadDir, "P2P_UPLOAD_DIR")
	setFromEnv(&cfg.ProxyURL, "P2P_PROXY_URL")
	setFromEnv(&cfg.KafkaBrokers, "KAFKA_BROKERS")
	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
