// In file: cmd/tempusvestis/console.go
package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dileep-u-k/tempusvestis/internal/agent"
	"github.com/dileep-u-k/tempusvestis/internal/console"
)

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := console.Options{}
	query := joinArgs(args)
	if query != "" {
		// Single-query mode never reads input; a nil reader would start readline.
		opts.In = noInput{}
		opts.Out = cmd.OutOrStdout()
	}
	con, err := console.New(a.consultant, opts)
	if err != nil {
		return err
	}
	a.consultant.Progress = con.Progress

	if query != "" {
		con.Ask(ctx, query)
		return nil
	}
	return con.Run(ctx)
}

type noInput struct{}

func (noInput) Readline() (string, error) { return "", io.EOF }
func (noInput) Close() error              { return nil }

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "explain <query...>",
		Short:       "Run only the tool-calling agent and print each reasoning step",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"surface": consoleSurface},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			query := joinArgs(args)
			agent.Explain(cmd.OutOrStdout(), query, a.agent.Respond(ctx, query))
			return nil
		},
	}
}
