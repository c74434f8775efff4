// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the attendance reconciler: it turns meeting participation
// into attendance records, one chunk of days per installation at a time.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/utils"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// cli carries the state shared by the subcommands.
type cli struct {
	env          environment
	otelShutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "attendance-reconciler",
		Short:         "Reconcile meeting participation into attendance records",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loadDotEnv()

			// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
			if debug {
				if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
					return fmt.Errorf("error setting log level: %w", err)
				}
			}
			logging.InitStructureLogConfig()

			env, err := parseEnv()
			if err != nil {
				return err
			}
			c.env = env

			shutdown, err := utils.SetupOTelSDK(cmd.Context())
			if err != nil {
				slog.With(logging.ErrKey, err).Warn("error setting up OpenTelemetry, continuing without it")
			}
			c.otelShutdown = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.shutdownOTel(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(c.runCmd())
	rootCmd.AddCommand(c.workerCmd())
	rootCmd.AddCommand(c.scheduleCmd())

	return rootCmd
}

func (c *cli) shutdownOTel(ctx context.Context) error {
	if c.otelShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()
	if err := c.otelShutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Warn("error shutting down OpenTelemetry")
	}
	return nil
}
