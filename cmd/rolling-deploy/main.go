package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/greenbits/opsworks-interactor/internal/config"
	"github.com/greenbits/opsworks-interactor/internal/deploy"
	"github.com/greenbits/opsworks-interactor/internal/deploylock"
	"github.com/greenbits/opsworks-interactor/internal/elb"
	"github.com/greenbits/opsworks-interactor/internal/interactor"
	"github.com/greenbits/opsworks-interactor/internal/lbmanager"
	"github.com/greenbits/opsworks-interactor/internal/logging"
	"github.com/greenbits/opsworks-interactor/internal/metrics"
	"github.com/greenbits/opsworks-interactor/internal/opsworks"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend deploylock.Backend
	if cfg.LockDatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.LockDatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to lock database")
		}
		defer pool.Close()
		metrics.RegisterLockPoolMetrics(pool)
		backend = deploylock.NewPostgresBackend(logger, pool)
	}

	lockName := cfg.LockName + ":" + cfg.StackID
	locker := deploylock.NewLocker(logger, backend, lockName, cfg.LockMaxWait)

	computeClient := opsworks.New(logger, opsworks.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	elbClient := elb.New(logger, elb.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})

	it := interactor.New(
		logger,
		interactor.Config{
			StackID:       cfg.StackID,
			AppID:         cfg.AppID,
			LayerID:       cfg.LayerID,
			Percent:       cfg.Percent,
			DeployTimeout: cfg.DeployTimeout,
		},
		computeClient,
		lbmanager.NewManager(logger, elbClient, cfg.LBWaitTimeout),
		deploy.NewDriver(logger, computeClient),
		locker,
	)

	err = it.RollingDeploy(ctx)

	if cfg.PushgatewayURL != "" {
		if pushErr := metrics.Push(cfg.PushgatewayURL, cfg.StackID); pushErr != nil {
			logger.Warn().Err(pushErr).Msg("failed to push metrics")
		}
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("rolling deploy failed")
	}
}
