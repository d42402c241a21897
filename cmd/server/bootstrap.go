package main

import (
	"fmt"
	"io"

	"github.com/Nixie-Tech-LLC/mesophy/internal/config"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/logging"
)

// bootstrap loads config, configures logging and opens the database.
func bootstrap() (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	closer := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		Pretty:     !cfg.IsProduction(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err := db.Init(cfg.DatabaseURL); err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("db init: %w", err)
	}
	return cfg, closer, nil
}
