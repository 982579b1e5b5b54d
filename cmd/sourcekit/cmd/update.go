package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/appstation/sourcekit"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
	"github.com/appstation/sourcekit/pkg/providers"
)

var (
	updateDryRun    bool
	updatePretty    bool
	updateFull      bool
	updateNoEnrich  bool
	updateJSON      bool
	updateOverrides string
)

// updateFile is the YAML shape of an update configuration: either a
// document with a providers list, or a bare list of entries.
type updateFile struct {
	Providers []providers.Config `yaml:"providers"`
}

var updateCmd = &cobra.Command{
	Use:   "update <config.yaml>",
	Short: "Reconcile the source against configured providers",
	Long: `Update loads the provider configuration and reconciles the source
document against each entry in declaration order. Failing entries are
reported and skipped; the rest of the run proceeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false,
		"report changes without saving the source")
	updateCmd.Flags().BoolVar(&updatePretty, "pretty", true,
		"indent the saved document")
	updateCmd.Flags().BoolVar(&updateFull, "full", false,
		"keep deprecated mirror fields and passthrough fields when saving")
	updateCmd.Flags().BoolVar(&updateNoEnrich, "no-enrich", false,
		"skip digest and permission backfill for updated apps")
	updateCmd.Flags().BoolVar(&updateJSON, "json", false,
		"print the run summary as JSON")
	updateCmd.Flags().StringVar(&updateOverrides, "overrides", "",
		"JSON file of per-app field overrides applied after the update")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	configs, err := loadUpdateConfig(args[0])
	if err != nil {
		return err
	}

	m, err := newManager(sourcekit.WithInlineEnrichment(!updateNoEnrich))
	if err != nil {
		return err
	}

	summary, runErr := m.Update(cmd.Context(), configs)
	if updateJSON && summary != nil {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	if runErr != nil {
		return runErr
	}

	if updateOverrides != "" {
		overrides, err := loadOverrides(updateOverrides)
		if err != nil {
			return err
		}
		if err := m.ApplyOverrides(overrides); err != nil {
			return err
		}
	}

	logging.Info().
		Int("updated", summary.AppsUpdated).
		Int("added", summary.AppsAdded).
		Int("news", summary.NewsAdded).
		Int("diagnostics", len(summary.Diagnostics)).
		Msg("Update complete")

	if updateDryRun {
		logging.Info().Msg("Dry run, not saving")
		return nil
	}
	return m.Save(updatePretty, updateFull)
}

func loadUpdateConfig(path string) ([]providers.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file updateFile
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Providers) > 0 {
		return file.Providers, nil
	}
	var list []providers.Config
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return list, nil
}

func loadOverrides(path string) (sourcekit.Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var overrides sourcekit.Overrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return overrides, nil
}
