// Package interactor sequences rolling deploys: acquire the cluster-wide
// deploy lock, batch the online instances, and for each batch drain it from
// its load balancers, deploy, and put it back in rotation.
package interactor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/greenbits/opsworks-interactor/internal/batch"
	"github.com/greenbits/opsworks-interactor/internal/metrics"
	"github.com/greenbits/opsworks-interactor/internal/model"
)

// InstanceLister enumerates the instances of a layer.
type InstanceLister interface {
	ListInstances(ctx context.Context, layerID string) ([]model.Instance, error)
}

// LoadBalancerManager drains and restores load-balancer membership.
type LoadBalancerManager interface {
	Detach(ctx context.Context, instances []model.Instance) ([]model.LoadBalancer, error)
	Attach(ctx context.Context, instances []model.Instance, lbs []model.LoadBalancer) (map[string]string, error)
}

// Deployer runs one deployment to a terminal status.
type Deployer interface {
	Deploy(ctx context.Context, stackID, appID string, instanceIDs []string, timeout time.Duration) (*model.DeploymentResult, error)
}

// LockRunner runs a body under the cluster-wide deploy lock.
type LockRunner interface {
	WithLock(ctx context.Context, body func(ctx context.Context) error) error
}

// Config identifies the deploy target and tunes batching and timeouts.
type Config struct {
	StackID string
	AppID   string
	LayerID string
	// Percent in (0, 1] sets the batch size to ceil(eligible * Percent).
	// Zero means a single batch of all eligible instances.
	Percent       float64
	DeployTimeout time.Duration
}

// Interactor is the rolling-deploy orchestrator.
type Interactor struct {
	cfg      Config
	compute  InstanceLister
	lbs      LoadBalancerManager
	deployer Deployer
	locker   LockRunner
	logger   zerolog.Logger
}

// New creates an Interactor.
func New(logger zerolog.Logger, cfg Config, compute InstanceLister, lbs LoadBalancerManager, deployer Deployer, locker LockRunner) *Interactor {
	return &Interactor{
		cfg:      cfg,
		compute:  compute,
		lbs:      lbs,
		deployer: deployer,
		locker:   locker,
		logger: logger.With().
			Str("component", "interactor").
			Str("stack_id", cfg.StackID).
			Str("app_id", cfg.AppID).
			Logger(),
	}
}

// RollingDeploy deploys the layer's online instances batch by batch, draining
// each batch from its load balancers before deploying it and restoring it
// afterwards. The whole run holds the deploy lock; if the lock cannot be
// acquired nothing is touched. Batches run strictly sequentially, and a batch
// whose detach found no load balancers still deploys.
func (i *Interactor) RollingDeploy(ctx context.Context) error {
	started := time.Now()
	return i.locker.WithLock(ctx, func(ctx context.Context) error {
		metrics.LockWaitSeconds.Observe(time.Since(started).Seconds())
		return i.rollingDeploy(ctx)
	})
}

func (i *Interactor) rollingDeploy(ctx context.Context) error {
	runID := uuid.New().String()
	logger := i.logger.With().Str("run_id", runID).Logger()

	eligible, err := i.eligibleInstances(ctx)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		logger.Warn().Msg("no online instances in layer, nothing to deploy")
		return nil
	}

	batches := batch.Partition(eligible, i.cfg.Percent)
	logger.Info().
		Int("eligible", len(eligible)).
		Int("batches", len(batches)).
		Msg("starting rolling deploy")

	for _, b := range batches {
		if err := i.deployBatch(ctx, logger, b); err != nil {
			metrics.BatchesTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.BatchesTotal.WithLabelValues("succeeded").Inc()
		logger.Info().
			Str("event", "batch-done").
			Int("batch", b.Number).
			Msg("batch deployed and restored")
	}

	logger.Info().
		Str("event", "deploy-all-complete").
		Int("batches", len(batches)).
		Msg("rolling deploy complete")
	return nil
}

// Deploy issues a single deployment to every online instance in the layer,
// with no load-balancer sequencing. It still runs under the deploy lock so it
// cannot interleave with a rolling deploy elsewhere.
func (i *Interactor) Deploy(ctx context.Context) error {
	return i.locker.WithLock(ctx, func(ctx context.Context) error {
		eligible, err := i.eligibleInstances(ctx)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			i.logger.Warn().Msg("no online instances in layer, nothing to deploy")
			return nil
		}
		_, err = i.deployer.Deploy(ctx, i.cfg.StackID, i.cfg.AppID, model.InstanceIDs(eligible), i.cfg.DeployTimeout)
		return err
	})
}

func (i *Interactor) eligibleInstances(ctx context.Context) ([]model.Instance, error) {
	instances, err := i.compute.ListInstances(ctx, i.cfg.LayerID)
	if err != nil {
		return nil, fmt.Errorf("list instances for layer %s: %w", i.cfg.LayerID, err)
	}
	return batch.Eligible(instances), nil
}

// deployBatch runs detach, deploy, attach for one batch. Attach always runs
// once detach has returned, even when the deploy fails, so the rotation
// window opened by detach is closed on every exit path. A deploy error takes
// precedence over an attach error.
func (i *Interactor) deployBatch(ctx context.Context, logger zerolog.Logger, b model.Batch) (err error) {
	logger.Info().
		Str("event", "batch-started").
		Int("batch", b.Number).
		Strs("hostnames", hostnames(b.Instances)).
		Msg("deploying batch")

	lbs, detachErr := i.lbs.Detach(ctx, b.Instances)
	defer func() {
		if _, attachErr := i.lbs.Attach(ctx, b.Instances, lbs); attachErr != nil {
			if err == nil {
				err = fmt.Errorf("batch %d: attach: %w", b.Number, attachErr)
				return
			}
			logger.Error().
				Err(attachErr).
				Int("batch", b.Number).
				Msg("attach failed while propagating earlier batch error")
		}
	}()
	if detachErr != nil {
		return fmt.Errorf("batch %d: detach: %w", b.Number, detachErr)
	}

	if _, deployErr := i.deployer.Deploy(ctx, i.cfg.StackID, i.cfg.AppID, b.InstanceIDs(), i.cfg.DeployTimeout); deployErr != nil {
		return fmt.Errorf("batch %d: deploy: %w", b.Number, deployErr)
	}
	return nil
}

func hostnames(instances []model.Instance) []string {
	names := make([]string, 0, len(instances))
	for _, inst := range instances {
		names = append(names, inst.Hostname)
	}
	return names
}
