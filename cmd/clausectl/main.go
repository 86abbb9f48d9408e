// ClauseGuard - Contract compliance and risk scoring for UK SMEs.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

// Command clausectl assesses contracts from the command line, either
// in-process or against a running ClauseGuard server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	Server  string
	Tenant  string
	Output  string
	Timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "clausectl",
		Short:   "ClauseGuard contract compliance and risk CLI",
		Long:    "clausectl checks contracts against UK compliance rules and scores their risk.\nWithout --server it runs the engine in-process.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Output != "text" && opts.Output != "json" {
				return fmt.Errorf("invalid output format: %s (must be text/json)", opts.Output)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.Server, "server", "", "ClauseGuard server URL (default: run in-process)")
	pf.StringVar(&opts.Tenant, "tenant", "default", "tenant ID sent as X-Tenant-ID")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")

	cmd.AddCommand(newAssessCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newRulesCmd(opts))
	cmd.AddCommand(newBenchCmd(opts))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
