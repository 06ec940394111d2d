package library

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultJournalPath is where the CLI appends its lending log.
const DefaultJournalPath = "library_log.txt"

// FileJournal appends one line per event to a text file:
//
//	[2026-10-15] BORROW | member=M1 | item=B001 | title=Clean Code
type FileJournal struct {
	path string
}

// NewFileJournal returns a journal writing to path. The file and its
// directory are created on first append.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{path: path}
}

// Path is the file the journal writes to.
func (j *FileJournal) Path() string { return j.path }

// Append writes event as one line. The file is opened per call so that a
// journal shared by several processes never holds a stale handle.
func (j *FileJournal) Append(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "[%s] %s\n", event.Date.Format(DateLayout), event); err != nil {
		f.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Close()
}
