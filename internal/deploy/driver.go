// Package deploy issues OpsWorks deployments and blocks until they reach a
// terminal status.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/greenbits/opsworks-interactor/internal/metrics"
	"github.com/greenbits/opsworks-interactor/internal/model"
)

// DefaultTimeout bounds how long a single deployment may run before it is
// declared timed out.
const DefaultTimeout = 600 * time.Second

const statusPollInterval = 5 * time.Second

// DeployTimeoutError indicates a deployment was issued but did not reach a
// successful status within the wall-clock deadline. The deployment may still
// be running on the OpsWorks side.
type DeployTimeoutError struct {
	DeploymentID string
	Timeout      time.Duration
}

func (e *DeployTimeoutError) Error() string {
	return fmt.Sprintf("deployment %s did not complete within %s", e.DeploymentID, e.Timeout)
}

var errStillRunning = errors.New("deployment still running")

// Service is the OpsWorks deployment surface the driver needs.
type Service interface {
	CreateDeployment(ctx context.Context, req model.DeploymentRequest) (string, error)
	DeploymentStatus(ctx context.Context, deploymentID string) (string, error)
}

// Driver runs deploy-and-migrate commands to completion.
type Driver struct {
	svc          Service
	logger       zerolog.Logger
	pollInterval time.Duration
}

// NewDriver creates a Driver.
func NewDriver(logger zerolog.Logger, svc Service) *Driver {
	return &Driver{
		svc:          svc,
		logger:       logger.With().Str("component", "deploy-driver").Logger(),
		pollInterval: statusPollInterval,
	}
}

// Deploy issues a deploy-and-migrate command for exactly the given OpsWorks
// instance ids and polls the deployment status until it succeeds, fails, or
// the timeout elapses. The poll count is unbounded; only wall-clock time is.
func (d *Driver) Deploy(ctx context.Context, stackID, appID string, instanceIDs []string, timeout time.Duration) (*model.DeploymentResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	req := model.NewDeployRequest(stackID, appID, instanceIDs, "rolling deploy")
	deploymentID, err := d.svc.CreateDeployment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	d.logger.Info().
		Str("event", "deploy-started").
		Str("deployment_id", deploymentID).
		Strs("instance_ids", instanceIDs).
		Msg("deployment issued")

	// Poll errors are transient: only a terminal status, context
	// cancellation, or the deadline ends the wait.
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(d.pollInterval))
	var status string
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var pollErr error
		status, pollErr = d.svc.DeploymentStatus(ctx, deploymentID)
		if pollErr != nil {
			return retry.RetryableError(fmt.Errorf("poll deployment %s: %w", deploymentID, pollErr))
		}
		switch status {
		case model.DeploymentStatusSuccessful:
			return nil
		case model.DeploymentStatusFailed:
			return fmt.Errorf("deployment %s failed", deploymentID)
		default:
			return retry.RetryableError(errStillRunning)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if status == model.DeploymentStatusFailed {
			metrics.DeploymentsTotal.WithLabelValues(model.DeploymentStatusFailed).Inc()
			return nil, err
		}
		d.logger.Warn().Err(err).Str("deployment_id", deploymentID).Msg("deployment status wait exhausted")
		metrics.DeploymentsTotal.WithLabelValues(model.DeploymentStatusTimedOut).Inc()
		return &model.DeploymentResult{DeploymentID: deploymentID, Status: model.DeploymentStatusTimedOut},
			&DeployTimeoutError{DeploymentID: deploymentID, Timeout: timeout}
	}

	metrics.DeploymentsTotal.WithLabelValues(model.DeploymentStatusSuccessful).Inc()
	d.logger.Info().
		Str("event", "deploy-completed").
		Str("deployment_id", deploymentID).
		Msg("deployment successful")
	return &model.DeploymentResult{DeploymentID: deploymentID, Status: model.DeploymentStatusSuccessful}, nil
}
