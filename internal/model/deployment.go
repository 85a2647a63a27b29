package model

// Deployment status constants as reported by OpsWorks, plus the local
// timed-out terminal state.
const (
	DeploymentStatusRunning    = "running"
	DeploymentStatusSuccessful = "successful"
	DeploymentStatusFailed     = "failed"
	DeploymentStatusTimedOut   = "timed-out"
)

// DeploymentCommandDeploy is the OpsWorks command issued for every
// deployment. The migration flag is always set.
const DeploymentCommandDeploy = "deploy"

// DeploymentRequest describes a single OpsWorks deployment. Immutable once
// issued.
type DeploymentRequest struct {
	StackID     string              `json:"stack_id"`
	AppID       string              `json:"app_id"`
	InstanceIDs []string            `json:"instance_ids"`
	Command     string              `json:"command"`
	Args        map[string][]string `json:"args"`
	Comment     string              `json:"comment,omitempty"`
}

// NewDeployRequest builds a deploy-and-migrate request for exactly the given
// OpsWorks instance ids.
func NewDeployRequest(stackID, appID string, instanceIDs []string, comment string) DeploymentRequest {
	return DeploymentRequest{
		StackID:     stackID,
		AppID:       appID,
		InstanceIDs: instanceIDs,
		Command:     DeploymentCommandDeploy,
		Args:        map[string][]string{"migrate": {"true"}},
		Comment:     comment,
	}
}

// DeploymentResult is the terminal outcome of a deployment request.
type DeploymentResult struct {
	DeploymentID string `json:"deployment_id"`
	Status       string `json:"status"`
}

// Batch is an ordered, non-overlapping subset of eligible instances deployed
// together. Number is 1-based and follows the original instance order.
type Batch struct {
	Number    int        `json:"number"`
	Instances []Instance `json:"instances"`
}

// InstanceIDs returns the OpsWorks ids of the batch members.
func (b Batch) InstanceIDs() []string {
	return InstanceIDs(b.Instances)
}

// EC2InstanceIDs returns the EC2 ids of the batch members.
func (b Batch) EC2InstanceIDs() []string {
	return EC2InstanceIDs(b.Instances)
}
