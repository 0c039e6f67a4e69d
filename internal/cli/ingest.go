package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index policy documents into the retrieval store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			dir := docsDir
			if dir == "" {
				dir = cfg.RAG.DocsDir
			}
			if dir == "" {
				dir = paths.Docs
			}

			stats, err := st.index.IngestFolder(dir)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", dir, err)
			}

			log.Info().
				Str("dir", dir).
				Int("documents", stats.Documents).
				Int("chunks", stats.AddedChunks).
				Int("skipped", len(stats.SkippedFiles)).
				Msg("ingest complete")
			fmt.Printf("Indexed %d documents (%d chunks, %d skipped) from %s\n",
				stats.Documents, stats.AddedChunks, len(stats.SkippedFiles), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsDir, "dir", "", "documents directory (default ~/.safar/docs)")

	return cmd
}
