package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/duynguyendang/relpat/pkg/ingest"
	"github.com/duynguyendang/relpat/pkg/store"
)

func newIngestCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Persist labeled TSV datasets into the data directory",
		Long: `Load a labeled TSV dataset directory (dataset.yaml or train/valid/test
split files) and persist it as a BadgerDB dataset under the data directory.

With --tree every dataset directory below <source> is ingested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			parts, _ := cmd.Flags().GetString("parts")
			tree, _ := cmd.Flags().GetBool("tree")
			opts := ingest.Options{
				Name:        name,
				Description: description,
				Parts:       splitParts(parts),
				Logger:      a.logger,
			}

			if tree {
				// Each dataset keeps its own name.
				opts.Name = ""
				results, err := ingest.Tree(cmd.Context(), args[0], a.cfg.DataDir, a.ingestConfig, opts)
				if err != nil {
					return err
				}
				for _, res := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\t%s\n", res.Name, res.Counts, res.Duration)
				}
				return nil
			}

			id := name
			if id == "" {
				id = filepath.Base(filepath.Clean(args[0]))
			}
			target := filepath.Join(a.cfg.DataDir, id)
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating dataset directory: %w", err)
			}
			res, err := ingest.Dir(cmd.Context(), args[0], a.ingestConfig(target), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\t%s\n", res.Name, res.Counts, res.Duration)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Dataset name and id (default: source directory name)")
	cmd.Flags().String("description", "", "Dataset description")
	cmd.Flags().String("parts", "", "Comma-separated parts to ingest (default: all)")
	cmd.Flags().Bool("tree", false, "Ingest every dataset directory below <source>")
	return cmd
}

// ingestConfig tunes BadgerDB for bulk writes into dir.
func (a *app) ingestConfig(dir string) *store.Config {
	cfg := a.cfg.StoreConfig(dir)
	cfg.Profile = store.ProfileIngestHeavy
	cfg.SyncWrites = true
	cfg.Logger = a.logger
	return cfg
}
