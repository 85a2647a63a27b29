package model

// Instance status constants as reported by OpsWorks.
const (
	InstanceStatusOnline       = "online"
	InstanceStatusBooting      = "booting"
	InstanceStatusPending      = "pending"
	InstanceStatusStopped      = "stopped"
	InstanceStatusShuttingDown = "shutting_down"
	InstanceStatusSetupFailed  = "setup_failed"
)

// Instance is a read-only snapshot of an OpsWorks instance. Only instances
// whose status is online are eligible for deployment.
type Instance struct {
	InstanceID    string `json:"instance_id"`
	EC2InstanceID string `json:"ec2_instance_id"`
	Hostname      string `json:"hostname"`
	Status        string `json:"status"`
}

// Online reports whether the instance is eligible for deployment.
func (i Instance) Online() bool {
	return i.Status == InstanceStatusOnline
}

// InstanceIDs returns the OpsWorks instance ids of the given instances.
func InstanceIDs(instances []Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.InstanceID)
	}
	return ids
}

// EC2InstanceIDs returns the EC2 instance ids of the given instances.
// Load balancer membership is keyed by EC2 id, not OpsWorks id.
func EC2InstanceIDs(instances []Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.EC2InstanceID)
	}
	return ids
}
