package infra

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger: "console" gets the development
// encoder, anything else the production JSON encoder.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger level %q: %w", cfg.Level, err)
		}
		zc.Level = lvl
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("agentvault"), nil
}
