// ABOUTME: CLI command to answer one question through the pipeline
// ABOUTME: Prints the cited answer, optionally with the executed step trace
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/harper/electionrag/internal/models"
	"github.com/spf13/cobra"
)

var (
	askTrace bool
)

// NewAskCmd creates ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Answer a question from the indexed documents.

The question is routed first: greetings get a short generic reply,
unrelated questions get no answer, and everything else goes through
retrieval, grading and generation with cited sources.

Examples:
  electionrag ask "What is the NPP's plan for education?"
  electionrag ask --trace "Who is eligible to vote?"
  electionrag ask --format json "How is the President elected?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askTrace, "trace", false, "Print each executed pipeline step")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.Controller.Run(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	if askTrace {
		printTrace(out, res.Steps)
		fmt.Fprintln(out)
	}

	if res.TerminalReason == models.TerminalIrrelevant {
		fmt.Fprintln(out, "That question is outside what I can answer from these documents.")
	} else {
		fmt.Fprintln(out, res.Answer)
	}

	if res.LowConfidence && !quiet {
		fmt.Fprintf(out, "\n(low confidence: %s after %d retries)\n", res.TerminalReason, res.RetryCount)
	}
	return nil
}

func printTrace(w io.Writer, steps []models.Step) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tSTEP\tOUTCOME\tRETRIES\tDURATION\n")
	fmt.Fprintf(tw, "-\t----\t-------\t-------\t--------\n")
	for i, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, s.Name, s.Outcome, s.RetryCount, formatDuration(s.Duration))
	}
	_ = tw.Flush()
}
