package batch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

func makeInstances(n int) []model.Instance {
	instances := make([]model.Instance, 0, n)
	for i := 0; i < n; i++ {
		instances = append(instances, model.Instance{
			InstanceID:    fmt.Sprintf("ow-%d", i),
			EC2InstanceID: fmt.Sprintf("i-%d", i),
			Hostname:      fmt.Sprintf("app%d", i),
			Status:        model.InstanceStatusOnline,
		})
	}
	return instances
}

func TestPartition_NoPercent_SingleBatch(t *testing.T) {
	instances := makeInstances(4)

	batches := Partition(instances, 0)

	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].Number)
	assert.Equal(t, instances, batches[0].Instances)
}

func TestPartition_HalfPercent_TwoBatches(t *testing.T) {
	instances := makeInstances(4)

	batches := Partition(instances, 0.5)

	require.Len(t, batches, 2)
	assert.Equal(t, instances[:2], batches[0].Instances)
	assert.Equal(t, instances[2:], batches[1].Instances)
	assert.Equal(t, 1, batches[0].Number)
	assert.Equal(t, 2, batches[1].Number)
}

func TestPartition_CeilRounding(t *testing.T) {
	instances := makeInstances(5)

	batches := Partition(instances, 0.5)

	// ceil(5 * 0.5) = 3, so a full batch of 3 and a remainder of 2.
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Instances, 3)
	assert.Len(t, batches[1].Instances, 2)
}

func TestPartition_TinyPercent_ClampsToOne(t *testing.T) {
	instances := makeInstances(3)

	batches := Partition(instances, 0.01)

	require.Len(t, batches, 3)
	for i, b := range batches {
		assert.Len(t, b.Instances, 1)
		assert.Equal(t, instances[i].InstanceID, b.Instances[0].InstanceID)
	}
}

func TestPartition_FullPercent_SingleBatch(t *testing.T) {
	instances := makeInstances(3)

	batches := Partition(instances, 1)

	require.Len(t, batches, 1)
	assert.Equal(t, instances, batches[0].Instances)
}

func TestPartition_PartitionsExactly(t *testing.T) {
	instances := makeInstances(7)

	batches := Partition(instances, 0.3)

	var flattened []model.Instance
	for _, b := range batches {
		flattened = append(flattened, b.Instances...)
	}
	// No gaps, no duplicates, no reordering.
	assert.Equal(t, instances, flattened)
}

func TestPartition_Empty(t *testing.T) {
	assert.Nil(t, Partition(nil, 0.5))
}

func TestEligible_FiltersOffline(t *testing.T) {
	instances := []model.Instance{
		{InstanceID: "ow-0", Status: model.InstanceStatusOnline},
		{InstanceID: "ow-1", Status: model.InstanceStatusStopped},
		{InstanceID: "ow-2", Status: model.InstanceStatusOnline},
		{InstanceID: "ow-3", Status: model.InstanceStatusSetupFailed},
	}

	eligible := Eligible(instances)

	require.Len(t, eligible, 2)
	assert.Equal(t, "ow-0", eligible[0].InstanceID)
	assert.Equal(t, "ow-2", eligible[1].InstanceID)
}

func TestEligible_Empty(t *testing.T) {
	assert.Empty(t, Eligible(nil))
}
