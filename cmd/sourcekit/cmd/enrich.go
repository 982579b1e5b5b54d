package cmd

import (
	"github.com/spf13/cobra"

	"github.com/appstation/sourcekit/pkg/logging"
)

var (
	enrichAllVersions bool
	enrichForce       bool
	enrichPretty      bool
	enrichFull        bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfill package digests and permissions",
	Long: `Enrich downloads packages to fill in missing sha256 digests and, from
each app's newest version, missing permissions. Versions whose packages
cannot be fetched are skipped and retried on the next run.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichAllVersions, "all-versions", false,
		"enrich every version, not just each app's newest")
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false,
		"recompute digests and permissions even when present")
	enrichCmd.Flags().BoolVar(&enrichPretty, "pretty", true, "indent the saved document")
	enrichCmd.Flags().BoolVar(&enrichFull, "full", false,
		"keep deprecated mirror fields and passthrough fields when saving")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}

	enriched, err := m.BackfillHashesAndPermissions(cmd.Context(), !enrichAllVersions, enrichForce)
	if err != nil {
		return err
	}
	logging.Info().Int("versions", enriched).Msg("Enrichment complete")

	return m.Save(enrichPretty, enrichFull)
}
