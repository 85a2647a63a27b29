package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJobName = "rolling-deploy"

// Push sends every recorded metric to a Pushgateway, grouped by stack. A
// run-to-completion command has no scrape surface, so this is the exposition
// path; call it once at the end of a run.
func Push(gatewayURL, stackID string) error {
	err := push.New(gatewayURL, pushJobName).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("stack", stackID).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
