// Package opsworks adapts the AWS OpsWorks API to the compute-service
// surface the orchestrator consumes.
package opsworks

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsopsworks "github.com/aws/aws-sdk-go-v2/service/opsworks"
	"github.com/aws/aws-sdk-go-v2/service/opsworks/types"
	"github.com/rs/zerolog"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

// api is the slice of the OpsWorks SDK client the adapter uses.
type api interface {
	DescribeInstances(ctx context.Context, params *awsopsworks.DescribeInstancesInput, optFns ...func(*awsopsworks.Options)) (*awsopsworks.DescribeInstancesOutput, error)
	CreateDeployment(ctx context.Context, params *awsopsworks.CreateDeploymentInput, optFns ...func(*awsopsworks.Options)) (*awsopsworks.CreateDeploymentOutput, error)
	DescribeDeployments(ctx context.Context, params *awsopsworks.DescribeDeploymentsInput, optFns ...func(*awsopsworks.Options)) (*awsopsworks.DescribeDeploymentsOutput, error)
}

// Config holds the credentials and region for the OpsWorks client.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Client wraps the OpsWorks SDK client.
type Client struct {
	api    api
	logger zerolog.Logger
}

// New creates a Client with static credentials.
func New(logger zerolog.Logger, cfg Config) *Client {
	return &Client{
		api: awsopsworks.New(awsopsworks.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}),
		logger: logger.With().Str("component", "opsworks").Logger(),
	}
}

// ListInstances returns a snapshot of every instance in the layer, in the
// order OpsWorks reports them.
func (c *Client) ListInstances(ctx context.Context, layerID string) ([]model.Instance, error) {
	out, err := c.api.DescribeInstances(ctx, &awsopsworks.DescribeInstancesInput{
		LayerId: aws.String(layerID),
	})
	if err != nil {
		return nil, fmt.Errorf("describe instances for layer %s: %w", layerID, err)
	}
	c.logger.Debug().Str("layer_id", layerID).Int("instances", len(out.Instances)).Msg("described layer instances")

	instances := make([]model.Instance, 0, len(out.Instances))
	for _, inst := range out.Instances {
		instances = append(instances, model.Instance{
			InstanceID:    aws.ToString(inst.InstanceId),
			EC2InstanceID: aws.ToString(inst.Ec2InstanceId),
			Hostname:      aws.ToString(inst.Hostname),
			Status:        aws.ToString(inst.Status),
		})
	}
	return instances, nil
}

// CreateDeployment issues the deployment and returns its id.
func (c *Client) CreateDeployment(ctx context.Context, req model.DeploymentRequest) (string, error) {
	input := &awsopsworks.CreateDeploymentInput{
		StackId:     aws.String(req.StackID),
		AppId:       aws.String(req.AppID),
		InstanceIds: req.InstanceIDs,
		Command: &types.DeploymentCommand{
			Name: types.DeploymentCommandName(req.Command),
			Args: req.Args,
		},
	}
	if req.Comment != "" {
		input.Comment = aws.String(req.Comment)
	}

	out, err := c.api.CreateDeployment(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create deployment: %w", err)
	}
	c.logger.Debug().
		Str("deployment_id", aws.ToString(out.DeploymentId)).
		Strs("instance_ids", req.InstanceIDs).
		Msg("created deployment")
	return aws.ToString(out.DeploymentId), nil
}

// DeploymentStatus returns the current status of a deployment.
func (c *Client) DeploymentStatus(ctx context.Context, deploymentID string) (string, error) {
	out, err := c.api.DescribeDeployments(ctx, &awsopsworks.DescribeDeploymentsInput{
		DeploymentIds: []string{deploymentID},
	})
	if err != nil {
		return "", fmt.Errorf("describe deployment %s: %w", deploymentID, err)
	}
	if len(out.Deployments) == 0 {
		return "", fmt.Errorf("deployment %s not found", deploymentID)
	}
	return aws.ToString(out.Deployments[0].Status), nil
}
