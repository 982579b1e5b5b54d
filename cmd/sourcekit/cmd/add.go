package cmd

import (
	"github.com/spf13/cobra"

	"github.com/appstation/sourcekit/pkg/logging"
)

var (
	addName        string
	addDeveloper   string
	addDescription string
	addIconURL     string
	addTintColor   string
	addPretty      bool
)

var addCmd = &cobra.Command{
	Use:   "add <download-url>",
	Short: "Add a new app from its package",
	Long: `Add downloads the package at the given URL, inspects it, and appends a
new app entry built from its metadata. Descriptive fields the package cannot
supply are taken from flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "app display name")
	addCmd.Flags().StringVar(&addDeveloper, "developer", "", "developer name")
	addCmd.Flags().StringVar(&addDescription, "description", "", "localized description")
	addCmd.Flags().StringVar(&addIconURL, "icon", "", "icon URL")
	addCmd.Flags().StringVar(&addTintColor, "tint", "", "tint color")
	addCmd.Flags().BoolVar(&addPretty, "pretty", true, "indent the saved document")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}

	app, err := m.AppFromPackage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if addName != "" {
		app.Name = addName
	}
	if addDeveloper != "" {
		app.DeveloperName = addDeveloper
	}
	if addDescription != "" {
		app.LocalizedDescription = addDescription
	}
	if addIconURL != "" {
		app.IconURL = addIconURL
	}
	if addTintColor != "" {
		app.TintColor = addTintColor
	}

	if err := m.AddApp(app); err != nil {
		return err
	}
	logging.Info().Str("app", app.Key()).Str("version", app.LegacyVersion).
		Msg("App added")
	return m.Save(addPretty, false)
}
