// Command anomalydetect ranks communities by how anomalous their structure
// is, with the supervised link-prediction pipeline or the unsupervised
// baselines, and evaluates rankings against known anomalies.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
