package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/greenbits/opsworks-interactor/internal/config"
)

// NewLogger creates a structured zerolog.Logger with deploy-target context
// fields from the config. Non-empty fields are added automatically.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.StackID != "" {
		ctx = ctx.Str("stack_id", cfg.StackID)
	}
	if cfg.AppID != "" {
		ctx = ctx.Str("app_id", cfg.AppID)
	}
	if cfg.LayerID != "" {
		ctx = ctx.Str("layer_id", cfg.LayerID)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
