// Command tqctl is the operator tool for the translation queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var dev bool

	root := &cobra.Command{
		Use:           "tqctl",
		Short:         "Operate the translation queue: inspect chunking, repair credits, mint tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&dev, "dev", false, "developer mode")

	env := &cliEnv{cfgPath: &cfgPath, dev: &dev}
	root.AddCommand(
		newVersionCmd(),
		newChunkCmd(),
		newReconcileCmd(env),
		newCreditsCmd(env),
		newTokenCmd(env),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tqctl version %s (commit %s)\n", version, commit)
		},
	}
}
