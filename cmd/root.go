package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/mqtt-test-client/app"
	"github.com/kilianp07/mqtt-test-client/config"
	"github.com/kilianp07/mqtt-test-client/core/publish"
	"github.com/kilianp07/mqtt-test-client/infra/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "mqtt-test-client",
	Short:         "Publish one MQTT v5 message over mutual TLS",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "environment overlay (.env, .yaml or .json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(ctx context.Context, style publish.Style) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Setup(cfg.Logging.AppEnv, cfg.Logging.Level)

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx, style)
}
