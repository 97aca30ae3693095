package cli

import (
	"github.com/spf13/cobra"

	"github.com/tinware/rapport/internal/config"
	"github.com/tinware/rapport/internal/logging"
	"github.com/tinware/rapport/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "Track friendships without pretending to be precise",
	Long: "Rapport keeps a ledger of interactions per friend and scores each bond\n" +
		"as a confirmed lower bound plus a fuzziness band, so the display never\n" +
		"claims more certainty than the evidence supports.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pingCmd)
}

// openDB opens the configured database for CLI commands and applies the
// configured log level.
func openDB() (*store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level)

	path := cfg.Database.Path
	if path == "" {
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}
