// ABOUTME: Sync commands for Charm cloud synchronization of the passage index
// ABOUTME: Only meaningful when ELECTIONRAG_STORE=charm
package commands

import (
	"fmt"

	"github.com/harper/electionrag/internal/charm"
	"github.com/harper/electionrag/internal/config"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization of the passage index with Charm cloud.

With ELECTIONRAG_STORE=charm, indexed passages live in a Charm KV
database and sync across every machine linked to the same account.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())

	return cmd
}

// openCharm opens the charm client named by config, refusing other backends
func openCharm() (*charm.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store != config.StoreCharm {
		return nil, fmt.Errorf("sync requires ELECTIONRAG_STORE=charm (current store: %s)", cfg.Store)
	}

	client, err := charm.NewClient(&charm.Config{
		Host:   cfg.CharmHost,
		DBName: cfg.CharmDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}
	return client, nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and stored passage count",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			keys, err := client.ListKeys(charm.PassagePrefix)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Status: Not connected")
				return nil
			}

			partitions := map[string]struct{}{}
			for _, key := range keys {
				partitions[charm.PartitionFromKey(key)] = struct{}{}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Status: Connected")
			fmt.Fprintf(cmd.OutOrStdout(), "Passages: %d across %d sources\n", len(keys), len(partitions))
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}
