package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/version"
)

var (
	cfgFile string
	homeDir string
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Incremental text pagination engine with a persistent page cache",
	Long: `Folio paginates plain-text documents into exact character ranges for a
given font, size, spacing, and viewport, computing pages in the background
and caching them durably so a reader can open any document instantly.

Pagination is incremental:
  - Pages are committed in atomic batches and survive restarts
  - A settings change starts a fresh cache entry under a new key
  - Readers only ever see fully committed batches`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.folio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: ~/.folio)",
	)

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process-wide text logger.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// openHome resolves and creates the home directory.
func openHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig builds the config manager, preferring the --config flag and
// falling back to the home directory's config file when present.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path)
}
