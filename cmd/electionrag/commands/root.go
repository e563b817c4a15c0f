// ABOUTME: Root command, global flags and shared setup for every subcommand
// ABOUTME: Builds the tint slog handler and loads .env before any command runs
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/harper/electionrag/internal/app"
	"github.com/harper/electionrag/internal/config"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string

	logger = slog.Default()
)

// newApp builds the fully wired application. Tests replace it.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.New(ctx, cfg, logger)
}

const banner = `
███████╗██╗     ███████╗ ██████╗████████╗██╗ ██████╗ ███╗   ██╗
██╔════╝██║     ██╔════╝██╔════╝╚══██╔══╝██║██╔═══██╗████╗  ██║
█████╗  ██║     █████╗  ██║        ██║   ██║██║   ██║██╔██╗ ██║
██╔══╝  ██║     ██╔══╝  ██║        ██║   ██║██║   ██║██║╚██╗██║
███████╗███████╗███████╗╚██████╗   ██║   ██║╚██████╔╝██║ ╚████║
╚══════╝╚══════╝╚══════╝ ╚═════╝   ╚═╝   ╚═╝ ╚═════╝ ╚═╝  ╚═══╝ rag`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "electionrag",
		Short: "Grounded, source-cited answers about an election",
		Long: banner + `

Answers questions about an election from indexed documents such as a
constitution and party manifestos. Each question is routed, matched
against retrieved passages, graded, and answered with cited sources.
When the documents do not support an answer the question is rewritten
and retried a bounded number of times before a low-confidence answer
is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			switch outputFormat {
			case "auto", "text", "json":
			default:
				return fmt.Errorf("--format must be auto, text or json, got %q", outputFormat)
			}
			logger = newLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging, including state transitions")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewAskCmd(),
		NewIndexCmd(),
		NewSearchCmd(),
		NewSourcesCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewSyncCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
