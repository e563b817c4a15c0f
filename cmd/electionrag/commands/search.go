// ABOUTME: CLI command to search indexed passages without generating an answer
// ABOUTME: Useful for checking what retrieval returns for a question and scope
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harper/electionrag/internal/models"
	"github.com/harper/electionrag/internal/retriever"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchScope string
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed passages",
		Long: `Search indexed passages by semantic similarity.

Runs only the retrieval step: no routing, grading or generation.
Use --scope to restrict the search to one configured document.

Examples:
  electionrag search "voting age"
  electionrag search --scope constitution --limit 10 "presidential term"
  electionrag search --format json "free senior high school"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 6, "Maximum passages to return")
	cmd.Flags().StringVar(&searchScope, "scope", string(models.ScopeAll), "Scope label to search within")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	cfg, store, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	ret := retriever.New(embedder, store, retriever.Config{
		TopK:     cfg.TopK,
		Scopes:   cfg.Scopes,
		CacheTTL: cfg.EmbedCacheTTL,
		Logger:   logger,
	})
	defer ret.Close()

	scope := models.ScopeLabel(models.NormalizeLabel(searchScope))
	passages, err := ret.Search(cmd.Context(), args[0], scope, searchLimit)
	if err != nil {
		return fmt.Errorf("searching passages: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	if len(passages) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No passages found for query: %s\n", args[0])
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tSOURCE\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t------\t-------\n")
	for _, p := range passages {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", p.Score, truncate(p.SourceID, 25), truncate(normalizePreview(p.Text), 70))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nFound %d passage(s)\n", len(passages))
	}
	return nil
}
