package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-anomaly/pkg/config"
	"github.com/dd0wney/cluso-anomaly/pkg/health"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
	"github.com/dd0wney/cluso-anomaly/pkg/server"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string

	cfg           *config.Config
	logger        logging.Logger
	registry      *metrics.Registry
	health        *health.Checker
	metricsServer *server.MetricsServer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "anomalydetect",
		Short: "Detect anomalous communities",
		Long: `anomalydetect ranks communities by how anomalous their structure is.

Commands:
  detect    - supervised link-prediction pipeline on train/test partition maps
  features  - build and checkpoint the topological feature tables only
  baseline  - rank communities with AMEN and the classic quality measures
  generate  - generate an anomaly-infused community-structured network
  evaluate  - average precision of ranking files against known anomalies`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(
		a.detectCmd(),
		a.featuresCmd(),
		a.baselineCmd(),
		a.generateCmd(),
		a.evaluateCmd(),
	)
	return root
}

// setup loads the configuration and starts logging and metrics.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var err error
	if a.configPath != "" {
		if a.cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	} else {
		a.cfg = config.Default()
		a.cfg.ApplyEnv()
	}
	if a.logLevel != "" {
		a.cfg.LogLevel = strings.ToUpper(a.logLevel)
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.logger = logging.NewJSONLogger(cmd.ErrOrStderr(), a.cfg.Level())
	logging.SetDefaultLogger(a.logger)
	a.registry = metrics.NewRegistry()
	a.health = health.NewChecker()
	a.health.Register("memory", health.MemoryCheck(0))

	addr := a.metricsAddr
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}
	if addr != "" {
		a.metricsServer = server.NewMetricsServer(addr, a.registry, a.logger, server.WithHealth(a.health))
		if err := a.metricsServer.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.metricsServer == nil {
		return nil
	}
	return a.metricsServer.Shutdown(5 * time.Second)
}
