// In file: cmd/tempusvestis/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dileep-u-k/tempusvestis/internal/config"
	"github.com/dileep-u-k/tempusvestis/internal/logging"
	"github.com/dileep-u-k/tempusvestis/internal/version"
)

// consoleSurface marks commands that talk to a person at a terminal; their
// logs default to warn so they do not interleave with the conversation.
const consoleSurface = "console"

var (
	configPath string
	verbose    bool

	cfg         *config.Config
	syncLogging = func() {}
)

func main() {
	err := newRootCmd().Execute()
	syncLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ ERROR: %v\n", err)
		var missing *missingKeyError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, "Please create a .env file with your OpenAI API key.")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tempusvestis [query...]",
		Short: "Weather-aware packing assistant",
		Long: `TempusVestis turns a travel plan ("Chicago in 7 days") into a packing list.
It resolves the dates, fetches the National Weather Service forecast and grounds
its advice in a wardrobe knowledge base.

Run without arguments for an interactive session, or pass a query to answer it
once and exit.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Annotations:       map[string]string{"surface": consoleSurface},
		PersistentPreRunE: setup,
		RunE:              runConsole,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newExplainCmd(), newVersionCmd())
	return root
}

// setup loads the configuration and installs the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if cmd.Annotations["surface"] == consoleSurface {
		level = "warn"
	}
	if verbose {
		level = "debug"
	}
	undo, err := logging.Setup(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	syncLogging = undo

	if err := cfg.Validate(); err != nil {
		if cfg.OpenAIKey == "" {
			return &missingKeyError{err: err}
		}
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

type missingKeyError struct{ err error }

func (e *missingKeyError) Error() string {
	return "OPENAI_API_KEY not found in environment variables."
}

func (e *missingKeyError) Unwrap() error { return e.err }

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "tempusvestis %s (commit %s, built %s) %s %s\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
		},
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
