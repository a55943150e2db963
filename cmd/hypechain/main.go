package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/kernel"
)

// cli carries the flags and the kernel shared by every subcommand
type cli struct {
	output   string // "text" or "json"
	inMemory bool
	kernel   *kernel.Kernel
}

func newRootCmd() *cobra.Command {
	app := &cli{output: "text"}

	rootCmd := &cobra.Command{
		Use:   "hypechain",
		Short: "HypeChain CLI - inspect share chains and distribute revenue",
		Long: `HypeChain CLI works directly against the attribution database.
Build share trees, run revenue distributions and read wallet analytics.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.output != "text" && app.output != "json" {
				return fmt.Errorf("--output must be text or json")
			}
			if cmd.Annotations["db"] != "true" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app.kernel, err = kernel.Bootstrap(cfg, kernel.BootstrapOptions{InMemory: app.inMemory})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.kernel == nil {
				return nil
			}
			return app.kernel.Cleanup(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.output, "output", app.output, "Output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&app.inMemory, "memory", false, "Use a throwaway in-memory database")

	rootCmd.AddCommand(
		app.treeCmd(),
		app.distributeCmd(),
		app.leaderboardCmd(),
		app.analyticsCmd(),
		app.migrateCmd(),
	)
	return rootCmd
}

// needsDB marks a command as requiring the kernel
func needsDB(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations["db"] = "true"
	return cmd
}

// render writes v as indented JSON or through the text printer
func (app *cli) render(w io.Writer, v interface{}, text func(io.Writer)) error {
	if app.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
