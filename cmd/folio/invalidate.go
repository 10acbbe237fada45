package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/pagecache"
)

var invalidateAll bool

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <document>",
	Short: "Drop cached pagination for a document",
	Long: `Drop cache entries for a document. By default only entries under
superseded settings keys are removed, keeping the current one; --all
removes everything, forcing repagination from scratch on the worker's
next scan.

Settings changes do not need this command: the worker repaginates under
a new key automatically and old entries are merely orphaned. Use it to
reclaim space or to clear a document removed from the library.`,
	Args: cobra.ExactArgs(1),
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
		doc, err := findDocument(library, args[0])
		if err != nil {
			return err
		}

		if invalidateAll {
			if err := store.DeleteAll(ctx, doc.Hash); err != nil {
				return err
			}
			fmt.Printf("dropped all cache entries for %s\n", doc.Name)
			return nil
		}

		key := mgr.Get().LayoutSettings().Key()
		if err := store.DeleteAllExcept(ctx, doc.Hash, key); err != nil {
			return err
		}
		fmt.Printf("dropped stale cache entries for %s (kept %s)\n", doc.Name, key)
		return nil
	},
}

func init() {
	invalidateCmd.Flags().BoolVar(&invalidateAll, "all", false, "Drop the current settings key's entry too")

	rootCmd.AddCommand(invalidateCmd)
}
