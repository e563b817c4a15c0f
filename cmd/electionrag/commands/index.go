// ABOUTME: CLI command to index a directory of documents
// ABOUTME: Each PDF, text or markdown file becomes a partition named after the file
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harper/electionrag/internal/indexer"
	"github.com/spf13/cobra"
)

var (
	indexChunkSize    int
	indexChunkOverlap int
)

// NewIndexCmd creates index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index documents into the passage store",
		Long: `Index every PDF, .txt and .md file under a directory.

Each file is split into overlapping chunks, embedded, and stored under
a partition named after the file (e.g. constitution.pdf). Re-indexing a
file replaces its previous passages. Scope labels map to these
partition names through ELECTIONRAG_SCOPES.

Examples:
  electionrag index ./downloaded_pdfs
  electionrag index --chunk-size 800 --chunk-overlap 80 ./manifestos`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().IntVar(&indexChunkSize, "chunk-size", 0, "Characters per chunk (default from ELECTIONRAG_CHUNK_SIZE)")
	cmd.Flags().IntVar(&indexChunkOverlap, "chunk-overlap", -1, "Characters shared between neighbouring chunks (default from ELECTIONRAG_CHUNK_OVERLAP)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cmd.Flags().Changed("chunk-size") {
		if err := validatePositiveInt(indexChunkSize, "chunk-size"); err != nil {
			return err
		}
		cfg.ChunkSize = indexChunkSize
	}
	if cmd.Flags().Changed("chunk-overlap") {
		cfg.ChunkOverlap = indexChunkOverlap
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	ix, err := indexer.New(embedder, store, indexer.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.EmbedBatchSize,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	report, err := ix.IndexDir(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("indexing %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARTITION\tCHUNKS\tPATH\n")
	fmt.Fprintf(w, "---------\t------\t----\n")
	for _, f := range report.Files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Partition, f.Chunks, f.Path)
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nIndexed %d chunk(s) from %d file(s)", report.Chunks(), len(report.Files))
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, ", skipped %d unsupported file(s)", len(report.Skipped))
		}
		fmt.Fprintln(out)
	}
	return nil
}
