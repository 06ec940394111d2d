package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"library-lending/library"
	"library-lending/logging"
)

// importEntry is one item in an import file:
//
//	[{"id":"B001","kind":"book","title":"Clean Code","author":"Robert C. Martin","isbn":"978-0132350884","page_count":431},
//	 {"id":"M001","kind":"magazine","title":"Popular Science","publisher":"Bonnier Corp","issue_number":245}]
type importEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	PageCount   int    `json:"page_count"`
	Publisher   string `json:"publisher"`
	IssueNumber int    `json:"issue_number"`
}

func (e importEntry) item() (library.Item, error) {
	if strings.TrimSpace(e.ID) == "" {
		return library.Item{}, fmt.Errorf("entry %q has no id", e.Title)
	}
	switch library.Kind(strings.ToLower(e.Kind)) {
	case library.KindBook:
		return library.NewBook(e.ID, e.Title, e.Author, e.ISBN, e.PageCount), nil
	case library.KindMagazine:
		return library.NewMagazine(e.ID, e.Title, e.Publisher, e.IssueNumber), nil
	default:
		return library.Item{}, fmt.Errorf("entry %s has unknown kind %q", e.ID, e.Kind)
	}
}

func readItems(path string) ([]library.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []importEntry
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items := make([]library.Item, 0, len(entries))
	for _, e := range entries {
		item, err := e.item()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func main() {
	var (
		dbPath string
		file   string
		keep   bool
	)

	cmd := &cobra.Command{
		Use:          "import_items",
		Short:        "Load catalog items into the library database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.Setup()

			if !keep {
				fmt.Println("Cleaning up existing database files...")
				for _, f := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
					if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
						fmt.Printf("Warning: Could not remove %s: %v\n", f, err)
					}
				}
			}

			items := library.SeedItems()
			if file != "" {
				var err error
				if items, err = readItems(file); err != nil {
					return err
				}
			}

			mgr, err := library.NewLibraryManager(dbPath, library.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer mgr.Close()

			ctx := context.Background()
			successCount, errorCount := 0, 0
			for _, item := range items {
				fmt.Printf("Importing: [%s] %s... ", item.ID, item.Title)
				if err := mgr.AddItem(ctx, item); err != nil {
					fmt.Printf("ERROR - %v\n", err)
					errorCount++
					continue
				}
				fmt.Println("SUCCESS")
				successCount++
			}

			fmt.Printf("\nImport complete!\n")
			fmt.Printf("Successfully imported: %d items\n", successCount)
			fmt.Printf("Errors: %d\n", errorCount)
			if errorCount > 0 {
				return fmt.Errorf("%d items failed to import", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "library.db", "SQLite database file")
	cmd.Flags().StringVar(&file, "file", "", "JSON file of items (default: built-in demo catalog)")
	cmd.Flags().BoolVar(&keep, "keep", false, "add to the existing database instead of starting fresh")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
