package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/pagecache"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pagination progress for every document",
	Long: `Show each library document's pagination state under the current
layout settings: committed pages, progress, and whether the document is
fully paginated. Reads the cache only; never starts pagination.`,
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
		docs, err := library.Scan()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Printf("no documents in %s\n", h.LibraryPath())
			return nil
		}

		key := mgr.Get().LayoutSettings().Key()
		fmt.Printf("settings key: %s\n\n", key)
		fmt.Printf("%-30s %-10s %8s %10s\n", "DOCUMENT", "ID", "PAGES", "STATE")
		for _, doc := range docs {
			meta, err := store.Meta(ctx, doc.Hash, key)
			switch {
			case errors.Is(err, pagecache.ErrEntryNotFound):
				fmt.Printf("%-30s %-10s %8s %10s\n", doc.Name, doc.ID, "-", "pending")
				continue
			case err != nil:
				return err
			}

			state := "partial"
			pages := fmt.Sprintf("%d", meta.PageCount)
			if meta.IsComplete {
				state = "complete"
			} else if meta.TotalPagesHint > 0 {
				pages = fmt.Sprintf("%d/~%d", meta.PageCount, meta.TotalPagesHint)
			}
			fmt.Printf("%-30s %-10s %8s %10s\n", doc.Name, doc.ID, pages, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// findDocument resolves a name or ID prefix to a library document.
func findDocument(library *document.Library, ref string) (*document.Document, error) {
	docs, err := library.Scan()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Name == ref || doc.ID == ref {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("document %q not found in library", ref)
}
