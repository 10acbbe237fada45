package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/pagecache"
	"github.com/jackzampolin/folio/internal/reader"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <document> [index]",
	Short: "Print a committed page of a document",
	Long: `Print one committed page of a document under the current layout
settings, or a page-count summary when no index is given. A page the
worker has not committed yet reports "not yet available" rather than
guessing at content.

Examples:
  folio pages moby-dick.txt      # Page count and completion state
  folio pages moby-dick.txt 12   # Content of page 12 (0-based)`,
	Args: cobra.RangeArgs(1, 2),
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

		client, err := reader.NewClient(reader.Config{
			Store:        store,
			DocumentHash: doc.Hash,
			SettingsKey:  mgr.Get().LayoutSettings().Key(),
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		if len(args) == 1 {
			count, complete := client.PageCount()
			meta := client.Meta()
			fmt.Printf("%s: %d pages committed", doc.Name, count)
			if complete {
				fmt.Printf(" (complete)\n")
			} else if meta.TotalPagesHint > 0 {
				fmt.Printf(" (in progress, ~%d total)\n", meta.TotalPagesHint)
			} else {
				fmt.Printf(" (pending)\n")
			}
			return nil
		}

		index, err := strconv.Atoi(args[1])
		if err != nil || index < 0 {
			return fmt.Errorf("invalid page index %q", args[1])
		}
		page, err := client.CurrentPage(ctx, index)
		if errors.Is(err, reader.ErrPageUnavailable) {
			fmt.Printf("page %d of %s is not yet available\n", index, doc.Name)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("--- %s page %d [%d,%d) ---\n", doc.Name, page.Index, page.StartOffset, page.EndOffset)
		fmt.Println(page.Content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}
