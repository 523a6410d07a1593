// Command talog drives the agent log ring: it feeds text through the
// ring and the wire codec, shows a live dashboard, decodes raw streams and
// stress-tests concurrent producers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oktetlabs/test-environment-sub029/internal/config"
	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
)

var (
	configPath string
	logLevel   string
	entityName string

	cfg *config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "talog",
	Short: "talog runs text through the agent log ring and its wire format",
	Long: `talog stores messages in the agent log ring the way test agent
producers do, drains them in wire form and decodes them again.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "operational log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&entityName, "entity", "", "agent entity name (overrides config)")
}

func loadConfig() error {
	var err error
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if entityName != "" {
		cfg.Entity = entityName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := logrus.ParseLevel(cfg.Log.Level)
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	return nil
}

// startLogger installs the process logger and, if configured, its
// metrics endpoint. The returned stop function shuts both down.
func startLogger() (*core.Logger, func(), error) {
	cc, err := cfg.Core()
	if err != nil {
		return nil, nil, err
	}
	l, err := core.Init(cc)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	st := l.RingStats()
	log.WithFields(logrus.Fields{
		"entity": cfg.Entity,
		"cells":  st.Total,
		"policy": cc.Policy,
	}).Debug("ring ready")

	var m *monitor.Metrics
	if cfg.Metrics.Enabled {
		m = monitor.NewMetrics(l.Stats(), l, log)
		m.Start(cfg.Metrics.Addr)
	}

	stop := func() {
		if m != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := m.Shutdown(ctx); err != nil {
				log.WithError(err).Warn("metrics shutdown")
			}
		}
		if err := core.Shutdown(); err != nil {
			log.WithError(err).Debug("logger shutdown")
		}
	}
	return l, stop, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
