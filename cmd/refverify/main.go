// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the refverify CLI, which checks that
// the DOIs and arXiv IDs in a bibliography resolve to real resources.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/refverify/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the refverify CLI.
var rootCmd = &cobra.Command{
	Use:   "refverify",
	Short: "Verify that bibliography identifiers resolve",
	Long: `refverify checks every DOI and arXiv ID in a BibTeX file against the
canonical resolvers, retrying transient failures with backoff and pacing
requests so resolvers are not hammered. References that do not resolve are
reported as potentially fake, with a suggested replacement found through a
bibliographic search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, slog.Default())
		if err != nil {
			return err
		}
		loadedSecrets = s
		slog.Debug("secrets loaded", "dir", dir,
			"crossref_mailto", s.CrossrefMailto != "", "semantic_scholar_key", s.SemanticScholarAPIKey != "")
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./refverify.yaml or ~/.config/refverify/refverify.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("secrets-dir", ".secrets", "directory holding crossref-mailto and semantic-scholar-api-key")
	addSettingsFlags(rootCmd)
}

func initConfig() {
	// .env values become environment variables before viper reads them.
	if err := loadDotEnv(); err != nil {
		slog.Warn("ignoring .env file", "error", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("refverify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "refverify"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("REFVERIFY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// loadDotEnv exports the variables in paths (default ".env") without
// overriding the environment. A missing file is not an error.
func loadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setupLogger installs a tint handler on stderr as the default logger.
func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
