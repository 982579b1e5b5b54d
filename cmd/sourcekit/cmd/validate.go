package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appstation/sourcekit/pkg/altsource"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the source document for missing keys",
	Long: `Validate loads the source document and reports every entity with
missing required keys, plus app permissions using unrecognized privacy
types. Exits non-zero when the document is invalid.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	src, err := altsource.Load(sourceFile)
	if err != nil {
		return err
	}

	problems := 0
	report := func(format string, args ...any) {
		problems++
		fmt.Printf(format+"\n", args...)
	}

	if missing := src.MissingKeys(); len(missing) > 0 {
		report("source: missing %s", strings.Join(missing, ", "))
	}
	for _, app := range src.Apps {
		if missing := app.MissingKeys(); len(missing) > 0 {
			report("app %s: missing %s", app.Key(), strings.Join(missing, ", "))
		}
		for _, v := range app.Versions {
			if missing := v.MissingKeys(); len(missing) > 0 {
				report("app %s version %s: missing %s", app.Key(), v.Version, strings.Join(missing, ", "))
			}
		}
		if app.AppPermissions != nil {
			if unknown := app.AppPermissions.UnknownPrivacyTypes(); len(unknown) > 0 {
				fmt.Printf("app %s: unrecognized privacy types %s\n", app.Key(), strings.Join(unknown, ", "))
			}
		}
	}
	for _, article := range src.News {
		if missing := article.MissingKeys(); len(missing) > 0 {
			report("article %s: missing %s", article.Identifier, strings.Join(missing, ", "))
		}
	}

	if problems > 0 {
		return fmt.Errorf("source %s is invalid: %d problem(s)", sourceFile, problems)
	}
	fmt.Printf("source %s is valid: %d app(s), %d article(s)\n", sourceFile, len(src.Apps), len(src.News))
	return nil
}
