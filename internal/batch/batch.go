// Package batch partitions an ordered instance list into sequential deploy
// batches.
package batch

import (
	"math"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

// Partition slices instances into sequential batches of size
// ceil(len(instances) * percent). A percent outside (0, 1] means "deploy
// everything at once" and yields a single batch. Batch size never drops below
// one instance while any instances remain, and the batches partition the
// input exactly: no reordering, no overlap, no gaps.
func Partition(instances []model.Instance, percent float64) []model.Batch {
	if len(instances) == 0 {
		return nil
	}

	size := len(instances)
	if percent > 0 && percent <= 1 {
		size = int(math.Ceil(float64(len(instances)) * percent))
		if size < 1 {
			size = 1
		}
	}

	var batches []model.Batch
	for start := 0; start < len(instances); start += size {
		end := start + size
		if end > len(instances) {
			end = len(instances)
		}
		batches = append(batches, model.Batch{
			Number:    len(batches) + 1,
			Instances: instances[start:end],
		})
	}
	return batches
}

// Eligible filters instances to those with status online, preserving order.
func Eligible(instances []model.Instance) []model.Instance {
	var eligible []model.Instance
	for _, inst := range instances {
		if inst.Online() {
			eligible = append(eligible, inst)
		}
	}
	return eligible
}
