package storage

import (
	"log/slog"

	"github.com/maltedev/flipkart-scraper/internal/config"
	"github.com/maltedev/flipkart-scraper/pkg/logger"
)

func configWithDriver(driver string) config.DatabaseConfig {
	cfg := config.Default().Database
	cfg.Driver = driver
	return cfg
}

func discardLogger() *slog.Logger {
	return logger.Discard()
}
