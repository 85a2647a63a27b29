package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	AWSRegion          string `validate:"required"`
	AWSAccessKeyID     string `validate:"required"`
	AWSSecretAccessKey string `validate:"required"`

	StackID string `validate:"required"`
	AppID   string `validate:"required"`
	LayerID string `validate:"required"`

	// Percent sets the batch size as a fraction of the eligible instances.
	// Zero deploys everything in a single batch.
	Percent float64 `validate:"gte=0,lte=1"`

	DeployTimeout time.Duration `validate:"gt=0"`
	LBWaitTimeout time.Duration `validate:"gt=0"`
	LockMaxWait   time.Duration `validate:"gt=0"`

	// LockDatabaseURL points at the Postgres instance backing the deploy
	// lock. Empty disables locking entirely.
	LockDatabaseURL string
	LockName        string `validate:"required"`

	// PushgatewayURL is where metrics are pushed at the end of a run.
	// Empty disables the push.
	PushgatewayURL string `validate:"omitempty,url"`

	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StackID:            getEnv("OPSWORKS_STACK_ID", ""),
		AppID:              getEnv("OPSWORKS_APP_ID", ""),
		LayerID:            getEnv("OPSWORKS_LAYER_ID", ""),
		LockDatabaseURL:    getEnv("LOCK_DATABASE_URL", ""),
		LockName:           getEnv("LOCK_NAME", "opsworks-deploy"),
		PushgatewayURL:     getEnv("METRICS_PUSHGATEWAY_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Percent, err = getFloat("DEPLOY_PERCENT", 0); err != nil {
		return nil, err
	}
	if cfg.DeployTimeout, err = getDuration("DEPLOY_TIMEOUT", 600*time.Second); err != nil {
		return nil, err
	}
	if cfg.LBWaitTimeout, err = getDuration("LB_WAIT_TIMEOUT", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.LockMaxWait, err = getDuration("LOCK_MAX_WAIT", 600*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the config identifies a deployable target.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
