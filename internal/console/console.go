// In file: internal/console/console.go

// Package console is the interactive terminal surface: a readline REPL and a
// single-query mode, both rendering answers as markdown.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/consultant"
)

const (
	prompt   = "💬 You: "
	farewell = "👋 Thanks for using TempusVestis! Safe travels!"
)

var separator = strings.Repeat("=", 60)

// Recommender answers packing queries.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*consultant.Recommendation, error)
}

// LineReader is the input side of the REPL. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Renderer turns markdown into terminal output. *glamour.TermRenderer
// satisfies it.
type Renderer interface {
	Render(markdown string) (string, error)
}

type Console struct {
	recommender Recommender
	in          LineReader
	out         io.Writer
	renderer    Renderer
	sessionID   string
}

// Options overrides the terminal defaults; zero fields use readline on
// stdin, glamour and stdout.
type Options struct {
	In       LineReader
	Out      io.Writer
	Renderer Renderer
}

// New creates a console session.
func New(r Recommender, opts Options) (*Console, error) {
	c := &Console{
		recommender: r,
		in:          opts.In,
		out:         opts.Out,
		renderer:    opts.Renderer,
		sessionID:   uuid.NewString(),
	}
	if c.in == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          prompt,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create readline: %w", err)
		}
		c.in = rl
	}
	if c.out == nil {
		if rl, ok := c.in.(*readline.Instance); ok {
			c.out = rl.Stdout()
		} else {
			c.out = io.Discard
		}
	}
	if c.renderer == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		c.renderer = tr
	}
	return c, nil
}

// SessionID identifies this console session in the logs.
func (c *Console) SessionID() string { return c.sessionID }

// Progress prints a status line while a recommendation is being built.
func (c *Console) Progress(message string) {
	fmt.Fprintln(c.out, message)
}

// Run shows the banner and help, then answers queries until the user quits,
// presses Ctrl-C, or closes the input.
func (c *Console) Run(ctx context.Context) error {
	defer c.in.Close()
	zap.S().Debugf("💬 Console session %s started", c.sessionID)

	fmt.Fprintln(c.out, Banner())
	fmt.Fprintln(c.out, HelpText)

	for {
		fmt.Fprintf(c.out, "\n%s\n\n", separator)
		line, err := c.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Fprintf(c.out, "\n\n%s\n", farewell)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintf(c.out, "\n%s\n", farewell)
			return nil
		case "help":
			fmt.Fprintln(c.out, HelpText)
			continue
		}

		fmt.Fprintln(c.out, "\n🤖 TempusVestis:")
		c.answer(ctx, input)

		if ctx.Err() != nil {
			fmt.Fprintf(c.out, "\n\n%s\n", farewell)
			return nil
		}
	}
}

// Ask answers one query and returns.
func (c *Console) Ask(ctx context.Context, query string) {
	fmt.Fprintln(c.out, Banner())
	fmt.Fprintf(c.out, "\n💬 Query: %s\n", query)
	fmt.Fprintln(c.out, "\n🤖 TempusVestis:")
	c.answer(ctx, query)
}

func (c *Console) answer(ctx context.Context, query string) {
	fmt.Fprintln(c.out)
	rec, err := c.recommender.Recommend(ctx, query)
	var content string
	if err != nil {
		zap.S().Warnw("Recommendation failed", "session", c.sessionID, "error", err)
		content = consultant.ErrorMessage(err)
	} else {
		zap.S().Debugw("Recommendation ready", "session", c.sessionID, "source", rec.Source,
			"cache", rec.CacheStatus, "latency", rec.Latency, "tokens", rec.Usage.TotalTokens)
		content = rec.Content
	}

	rendered, err := c.renderer.Render(content)
	if err != nil {
		fmt.Fprintf(c.out, "\n❌ Error: %v\n", err)
		fmt.Fprintln(c.out, "Please try again.")
		fmt.Fprintln(c.out, content)
		return
	}
	fmt.Fprintln(c.out, strings.TrimRight(rendered, "\n"))
}
