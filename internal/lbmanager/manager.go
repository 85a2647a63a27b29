// Package lbmanager drains instances out of Classic ELB rotation before a
// deploy and restores them afterwards, blocking until the remote state
// confirms each transition.
package lbmanager

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

// DefaultWaitTimeout bounds how long a single deregister/register
// confirmation may take.
const DefaultWaitTimeout = 300 * time.Second

const statePollInterval = 5 * time.Second

// InvalidArgumentError indicates the caller passed an unusable instance set
// to Detach or Attach. It is raised before any remote call.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Message
}

// LoadBalancerWaitTimeoutError indicates a deregistration or registration was
// issued but the load balancer did not confirm it within the wait window. The
// load balancer may be left partially transitioned and needs operator
// attention.
type LoadBalancerWaitTimeoutError struct {
	LoadBalancer string
	Op           string
	Wait         time.Duration
}

func (e *LoadBalancerWaitTimeoutError) Error() string {
	return fmt.Sprintf("load balancer %s: %s not confirmed within %s", e.LoadBalancer, e.Op, e.Wait)
}

var errStillTransitioning = errors.New("instances still transitioning")

// Service is the Classic ELB surface the manager needs.
type Service interface {
	ListLoadBalancers(ctx context.Context) ([]model.LoadBalancer, error)
	DeregisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error
	RegisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error
	InstanceStates(ctx context.Context, lbName string) (map[string]string, error)
}

// Manager performs the detach/attach halves of a batch deploy.
type Manager struct {
	svc          Service
	logger       zerolog.Logger
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// NewManager creates a Manager. A waitTimeout of zero falls back to
// DefaultWaitTimeout.
func NewManager(logger zerolog.Logger, svc Service, waitTimeout time.Duration) *Manager {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Manager{
		svc:          svc,
		logger:       logger.With().Str("component", "lb-manager").Logger(),
		waitTimeout:  waitTimeout,
		pollInterval: statePollInterval,
	}
}

// Detach deregisters the given instances from every load balancer they are
// attached to, except where doing so would drain the load balancer to zero:
// a load balancer is only targeted when the matched instances are a proper
// subset of its attached set. The load-balancer list is fetched fresh on
// every call. Returns pre-detach snapshots of the load balancers actually
// targeted; on a mid-operation failure the snapshots drained so far are
// still returned so the caller can restore them.
func (m *Manager) Detach(ctx context.Context, instances []model.Instance) ([]model.LoadBalancer, error) {
	if err := validateInstances(instances); err != nil {
		return nil, err
	}

	lbs, err := m.svc.ListLoadBalancers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list load balancers: %w", err)
	}

	var targeted []model.LoadBalancer
	for _, lb := range lbs {
		matched := matchedInstanceIDs(lb, instances)
		if len(matched) == 0 {
			continue
		}
		if len(matched) == len(lb.InstanceIDs) {
			m.logger.Warn().
				Str("event", "detach-skipped").
				Str("load_balancer", lb.Name).
				Int("attached", len(lb.InstanceIDs)).
				Msg("skipping detach, would drain load balancer to zero")
			continue
		}

		if err := m.svc.DeregisterInstances(ctx, lb.Name, matched); err != nil {
			return targeted, fmt.Errorf("deregister from %s: %w", lb.Name, err)
		}
		// The deregistration has been issued, so the load balancer is part of
		// the result even if confirmation below times out: the caller's
		// compensating attach must cover it.
		targeted = append(targeted, lb)
		if err := m.waitOutOfService(ctx, lb.Name, matched); err != nil {
			return targeted, err
		}

		metrics.LBDetachesTotal.Inc()
		m.logger.Info().
			Str("event", "detached-from").
			Str("load_balancer", lb.Name).
			Strs("ec2_instance_ids", matched).
			Msg("instances deregistered from load balancer")
	}

	if len(targeted) == 0 {
		m.logger.Info().
			Str("event", "no-load-balancers-found").
			Msg("no load balancer targeted for this batch")
	}
	return targeted, nil
}

// Attach re-registers the given instances with each load balancer snapshot
// and blocks until every restored instance reports in-service. Only
// instances that were part of a snapshot's pre-detach membership are
// registered with it, so a detach/attach round trip restores membership
// exactly. Returns the per-load-balancer outcome, keyed by name.
func (m *Manager) Attach(ctx context.Context, instances []model.Instance, lbs []model.LoadBalancer) (map[string]string, error) {
	if err := validateInstances(instances); err != nil {
		return nil, err
	}

	results := make(map[string]string, len(lbs))
	if len(lbs) == 0 {
		return results, nil
	}

	for _, lb := range lbs {
		matched := matchedInstanceIDs(lb, instances)
		if len(matched) == 0 {
			results[lb.Name] = "skipped"
			continue
		}

		if err := m.svc.RegisterInstances(ctx, lb.Name, matched); err != nil {
			return results, fmt.Errorf("register with %s: %w", lb.Name, err)
		}
		if err := m.waitInService(ctx, lb.Name, matched); err != nil {
			return results, err
		}

		results[lb.Name] = "in-service"
		metrics.LBAttachesTotal.Inc()
		m.logger.Info().
			Str("event", "reattached-to").
			Str("load_balancer", lb.Name).
			Strs("ec2_instance_ids", matched).
			Msg("instances back in service on load balancer")
	}
	return results, nil
}

// waitOutOfService polls until none of the given instances report InService
// on the load balancer, or the wait window elapses.
func (m *Manager) waitOutOfService(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	err := m.pollStates(ctx, lbName, func(states map[string]string) bool {
		for _, id := range ec2InstanceIDs {
			if states[id] == model.LBInstanceStateInService {
				return false
			}
		}
		return true
	})
	if err == nil || ctx.Err() != nil {
		return err
	}
	m.logger.Warn().Err(err).Str("load_balancer", lbName).Msg("deregister confirmation wait exhausted")
	return &LoadBalancerWaitTimeoutError{LoadBalancer: lbName, Op: "deregister", Wait: m.waitTimeout}
}

// waitInService polls until every given instance reports InService on the
// load balancer, or the wait window elapses.
func (m *Manager) waitInService(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	err := m.pollStates(ctx, lbName, func(states map[string]string) bool {
		for _, id := range ec2InstanceIDs {
			if states[id] != model.LBInstanceStateInService {
				return false
			}
		}
		return true
	})
	if err == nil || ctx.Err() != nil {
		return err
	}
	m.logger.Warn().Err(err).Str("load_balancer", lbName).Msg("register confirmation wait exhausted")
	return &LoadBalancerWaitTimeoutError{LoadBalancer: lbName, Op: "register", Wait: m.waitTimeout}
}

// pollStates repeatedly fetches the load balancer's instance states until
// done reports true. Fetch errors are treated as transient: the wait is
// ended only by the condition, context cancellation, or the deadline.
func (m *Manager) pollStates(ctx context.Context, lbName string, done func(map[string]string) bool) error {
	backoff := retry.WithMaxDuration(m.waitTimeout, retry.NewConstant(m.pollInterval))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		states, err := m.svc.InstanceStates(ctx, lbName)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("describe instance health for %s: %w", lbName, err))
		}
		if !done(states) {
			return retry.RetryableError(errStillTransitioning)
		}
		return nil
	})
}

// matchedInstanceIDs returns the EC2 ids of the given instances that are part
// of the load balancer's attached set, in snapshot order.
func matchedInstanceIDs(lb model.LoadBalancer, instances []model.Instance) []string {
	byID := make(map[string]bool, len(instances))
	for _, inst := range instances {
		byID[inst.EC2InstanceID] = true
	}
	var matched []string
	for _, id := range lb.InstanceIDs {
		if byID[id] {
			matched = append(matched, id)
		}
	}
	return matched
}

// validateInstances rejects instance sets the load-balancer operations cannot
// act on, before any remote call is made.
func validateInstances(instances []model.Instance) error {
	if len(instances) == 0 {
		return &InvalidArgumentError{Message: "no instances given"}
	}
	for _, inst := range instances {
		if inst.InstanceID == "" || inst.EC2InstanceID == "" {
			return &InvalidArgumentError{Message: fmt.Sprintf("instance %q is not an EC2-backed OpsWorks instance", inst.Hostname)}
		}
	}
	return nil
}
