// Package cmd implements the sourcekit CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/appstation/sourcekit"
	"github.com/appstation/sourcekit/pkg/logging"
)

var (
	configFile string
	sourceFile string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sourcekit",
	Short: "Versioned app catalog maintenance",
	Long: `Sourcekit maintains a versioned app catalog document. It reconciles the
catalog against configured providers (mirrored catalogs, GitHub release
feeds, curated release feeds), enriches versions with package digests and
permissions, and writes the document back out deterministically.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	// Signal-aware context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.sourcekit.yaml)")
	rootCmd.PersistentFlags().StringVarP(&sourceFile, "source", "s", "source.json",
		"source document to operate on")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"only log warnings and errors")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second,
		"HTTP timeout for provider fetches and downloads")
	rootCmd.PersistentFlags().String("github-token", "",
		"GitHub API token (or GITHUB_TOKEN)")

	cobra.CheckErr(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	cobra.CheckErr(viper.BindPFlag("github_token", rootCmd.PersistentFlags().Lookup("github-token")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sourcekit")
	}

	// .env files load before viper env binding so both are visible
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	cobra.CheckErr(viper.BindEnv("github_token", "GITHUB_TOKEN"))

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// configureLogging sets the global log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	zerolog.SetGlobalLevel(level)
	logging.SetDefault(logging.Default().Level(level))
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Overload(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
		}
	}
}

// newManager builds the Manager shared by the subcommands.
func newManager(opts ...sourcekit.Option) (*sourcekit.Manager, error) {
	base := []sourcekit.Option{
		sourcekit.WithSourceFile(sourceFile),
		sourcekit.WithTimeout(viper.GetDuration("timeout")),
		sourcekit.WithGitHubToken(viper.GetString("github_token")),
	}
	return sourcekit.New(append(base, opts...)...)
}
