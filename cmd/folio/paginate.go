package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/layout"
	"github.com/jackzampolin/folio/internal/notify"
	"github.com/jackzampolin/folio/internal/pagecache"
	"github.com/jackzampolin/folio/internal/worker"
)

var paginateCmd = &cobra.Command{
	Use:   "paginate",
	Short: "Run the background pagination worker",
	Long: `Run the pagination worker until interrupted.

The worker scans the library on an interval, paginates one document at a
time in atomic batches, and resumes partial work after a restart. Editing
the config file while the worker runs repaginates everything under the
new layout settings; adding or changing a document in the library
triggers an immediate rescan.

Examples:
  folio paginate                 # Use ~/.folio/library and ~/.folio/config.yaml
  folio paginate --home /tmp/f   # Use an alternate home directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := openHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}

		store, err := pagecache.NewSQLiteStore(h.CachePath(), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		library, err := document.NewLibrary(h.LibraryPath(), logger)
		if err != nil {
			return err
		}

		cfg := mgr.Get()
		w, err := worker.New(worker.Config{
			Store:        store,
			Library:      library,
			Measurer:     &layout.Monospace{},
			Settings:     func() layout.Settings { return mgr.Get().LayoutSettings() },
			Bus:          notify.NewBus(),
			BatchSize:    cfg.Worker.BatchSize,
			ScanInterval: cfg.Worker.ScanInterval,
			PruneStale:   cfg.Worker.PruneStale,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		// Settings edits invalidate in-flight work and rescan under the
		// new key.
		mgr.OnChange(func(*config.Config) {
			logger.Info("configuration changed, repaginating")
			w.InvalidateAll()
		})
		mgr.WatchConfig()

		// Library changes trigger an immediate rescan.
		go func() {
			if err := library.Watch(ctx, w.Wake); err != nil && ctx.Err() == nil {
				logger.Warn("library watcher stopped", "error", err)
			}
		}()

		w.Start(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paginateCmd)
}
