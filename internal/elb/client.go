// Package elb adapts the Classic ELB API to the load-balancer service
// surface the orchestrator consumes.
package elb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awselb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing/types"
	"github.com/rs/zerolog"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

// api is the slice of the ELB SDK client the adapter uses.
type api interface {
	DescribeLoadBalancers(ctx context.Context, params *awselb.DescribeLoadBalancersInput, optFns ...func(*awselb.Options)) (*awselb.DescribeLoadBalancersOutput, error)
	DeregisterInstancesFromLoadBalancer(ctx context.Context, params *awselb.DeregisterInstancesFromLoadBalancerInput, optFns ...func(*awselb.Options)) (*awselb.DeregisterInstancesFromLoadBalancerOutput, error)
	RegisterInstancesWithLoadBalancer(ctx context.Context, params *awselb.RegisterInstancesWithLoadBalancerInput, optFns ...func(*awselb.Options)) (*awselb.RegisterInstancesWithLoadBalancerOutput, error)
	DescribeInstanceHealth(ctx context.Context, params *awselb.DescribeInstanceHealthInput, optFns ...func(*awselb.Options)) (*awselb.DescribeInstanceHealthOutput, error)
}

// Config holds the credentials and region for the ELB client.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Client wraps the Classic ELB SDK client.
type Client struct {
	api    api
	logger zerolog.Logger
}

// New creates a Client with static credentials.
func New(logger zerolog.Logger, cfg Config) *Client {
	return &Client{
		api: awselb.New(awselb.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}),
		logger: logger.With().Str("component", "elb").Logger(),
	}
}

// ListLoadBalancers returns a fresh membership snapshot of every load
// balancer in the account/region.
func (c *Client) ListLoadBalancers(ctx context.Context) ([]model.LoadBalancer, error) {
	out, err := c.api.DescribeLoadBalancers(ctx, &awselb.DescribeLoadBalancersInput{})
	if err != nil {
		return nil, fmt.Errorf("describe load balancers: %w", err)
	}

	lbs := make([]model.LoadBalancer, 0, len(out.LoadBalancerDescriptions))
	for _, desc := range out.LoadBalancerDescriptions {
		lb := model.LoadBalancer{Name: aws.ToString(desc.LoadBalancerName)}
		for _, inst := range desc.Instances {
			lb.InstanceIDs = append(lb.InstanceIDs, aws.ToString(inst.InstanceId))
		}
		lbs = append(lbs, lb)
	}
	return lbs, nil
}

// DeregisterInstances takes the given EC2 instances out of the load
// balancer's rotation.
func (c *Client) DeregisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	_, err := c.api.DeregisterInstancesFromLoadBalancer(ctx, &awselb.DeregisterInstancesFromLoadBalancerInput{
		LoadBalancerName: aws.String(lbName),
		Instances:        elbInstances(ec2InstanceIDs),
	})
	if err != nil {
		return fmt.Errorf("deregister instances from %s: %w", lbName, err)
	}
	c.logger.Debug().Str("load_balancer", lbName).Strs("ec2_instance_ids", ec2InstanceIDs).Msg("deregistration issued")
	return nil
}

// RegisterInstances puts the given EC2 instances back into the load
// balancer's rotation.
func (c *Client) RegisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	_, err := c.api.RegisterInstancesWithLoadBalancer(ctx, &awselb.RegisterInstancesWithLoadBalancerInput{
		LoadBalancerName: aws.String(lbName),
		Instances:        elbInstances(ec2InstanceIDs),
	})
	if err != nil {
		return fmt.Errorf("register instances with %s: %w", lbName, err)
	}
	c.logger.Debug().Str("load_balancer", lbName).Strs("ec2_instance_ids", ec2InstanceIDs).Msg("registration issued")
	return nil
}

// InstanceStates returns the current health state of every instance the load
// balancer knows about, keyed by EC2 instance id. Instances that have
// finished deregistering are absent from the map.
func (c *Client) InstanceStates(ctx context.Context, lbName string) (map[string]string, error) {
	out, err := c.api.DescribeInstanceHealth(ctx, &awselb.DescribeInstanceHealthInput{
		LoadBalancerName: aws.String(lbName),
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance health for %s: %w", lbName, err)
	}

	states := make(map[string]string, len(out.InstanceStates))
	for _, st := range out.InstanceStates {
		states[aws.ToString(st.InstanceId)] = aws.ToString(st.State)
	}
	return states, nil
}

func elbInstances(ec2InstanceIDs []string) []types.Instance {
	instances := make([]types.Instance, 0, len(ec2InstanceIDs))
	for _, id := range ec2InstanceIDs {
		instances = append(instances, types.Instance{InstanceId: aws.String(id)})
	}
	return instances
}
