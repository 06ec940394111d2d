package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	e := Event{Kind: EventBorrow, MemberID: "X", ItemID: "Y", Title: "Clean Code"}
	assert.Equal(t, "BORROW | member=X | item=Y | title=Clean Code", e.String())
}

func TestFileJournal_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library_log.txt")
	j := NewFileJournal(path)
	ctx := context.Background()
	day := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(ctx, Event{Kind: EventBorrow, MemberID: "M1", ItemID: "B001", Title: "Clean Code", Date: day}))
	require.NoError(t, j.Append(ctx, Event{Kind: EventReturn, MemberID: "M1", ItemID: "B001", Title: "Clean Code", Date: day.AddDate(0, 0, 1)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-10-15] BORROW | member=M1 | item=B001 | title=Clean Code\n"+
			"[2026-10-16] RETURN | member=M1 | item=B001 | title=Clean Code\n",
		string(data))
}

func TestFileJournal_ReportsWriteFailure(t *testing.T) {
	// A directory where the file should be makes every open fail.
	path := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := NewFileJournal(path).Append(context.Background(), Event{Kind: EventBorrow})

	assert.Error(t, err)
}

func TestFileJournal_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "log.txt")

	err := NewFileJournal(path).Append(ctx, Event{Kind: EventBorrow})

	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
