package model

// ELB instance states as reported by DescribeInstanceHealth.
const (
	LBInstanceStateInService    = "InService"
	LBInstanceStateOutOfService = "OutOfService"
	LBInstanceStateUnknown      = "Unknown"
)

// LoadBalancer is a snapshot of a Classic ELB and the EC2 instance ids
// attached to it at the time the snapshot was taken. Snapshots are re-fetched
// at the start of every detach operation and never cached across batches.
type LoadBalancer struct {
	Name        string   `json:"name"`
	InstanceIDs []string `json:"instance_ids"`
}

// Attached reports whether the given EC2 instance id is part of the snapshot.
func (lb LoadBalancer) Attached(ec2InstanceID string) bool {
	for _, id := range lb.InstanceIDs {
		if id == ec2InstanceID {
			return true
		}
	}
	return false
}
