// ABOUTME: CLI command to list indexed source documents
// ABOUTME: Shows each partition with its passage count and the scope label that selects it
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harper/electionrag/internal/models"
	"github.com/spf13/cobra"
)

// NewSourcesCmd creates sources command
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List indexed source documents",
		Long: `List indexed source documents with passage counts.

The SCOPE column shows which scope label (from ELECTIONRAG_SCOPES)
restricts retrieval to that document. Documents without a label are
only searched when a question is scoped to "all".

Examples:
  electionrag sources
  electionrag sources --format json`,
		Args: cobra.NoArgs,
		RunE: runSources,
	}
	return cmd
}

type sourceRow struct {
	Partition string            `json:"partition"`
	Passages  int               `json:"passages"`
	Scope     models.ScopeLabel `json:"scope,omitempty"`
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	parts, err := store.Partitions(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}

	labels := make(map[string]models.ScopeLabel, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		labels[s.Title] = s.Label
	}
	rows := make([]sourceRow, len(parts))
	for i, p := range parts {
		rows[i] = sourceRow{Partition: p.Partition, Passages: p.Passages, Scope: labels[p.Partition]}
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	if len(rows) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No documents indexed. Run: electionrag index <dir>")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARTITION\tPASSAGES\tSCOPE\n")
	fmt.Fprintf(w, "---------\t--------\t-----\n")
	for _, r := range rows {
		scope := string(r.Scope)
		if scope == "" {
			scope = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.Partition, r.Passages, scope)
	}
	return w.Flush()
}
