package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstance_Online(t *testing.T) {
	assert.True(t, Instance{Status: InstanceStatusOnline}.Online())
	assert.False(t, Instance{Status: InstanceStatusStopped}.Online())
	assert.False(t, Instance{}.Online())
}

func TestBatch_IDHelpers(t *testing.T) {
	b := Batch{Number: 1, Instances: []Instance{
		{InstanceID: "ow-a", EC2InstanceID: "i-a"},
		{InstanceID: "ow-b", EC2InstanceID: "i-b"},
	}}

	assert.Equal(t, []string{"ow-a", "ow-b"}, b.InstanceIDs())
	assert.Equal(t, []string{"i-a", "i-b"}, b.EC2InstanceIDs())
}

func TestLoadBalancer_Attached(t *testing.T) {
	lb := LoadBalancer{Name: "web-lb", InstanceIDs: []string{"i-a", "i-b"}}

	assert.True(t, lb.Attached("i-a"))
	assert.False(t, lb.Attached("i-z"))
}

func TestNewDeployRequest_AlwaysMigrates(t *testing.T) {
	req := NewDeployRequest("stack-1", "app-1", []string{"ow-a"}, "rolling deploy")

	assert.Equal(t, DeploymentCommandDeploy, req.Command)
	assert.Equal(t, []string{"true"}, req.Args["migrate"])
	assert.Equal(t, []string{"ow-a"}, req.InstanceIDs)
}
