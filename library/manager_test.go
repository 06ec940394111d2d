package library

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newManager(t *testing.T, dbPath string, opts ...Option) *LibraryManager {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger)}, opts...)
	mgr, err := NewLibraryManager(dbPath, opts...)
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func seed(t *testing.T, mgr *LibraryManager) {
	t.Helper()
	for _, item := range SeedItems() {
		require.NoError(t, mgr.AddItem(context.Background(), item))
	}
}

type failingSink struct{ err error }

func (s failingSink) Append(context.Context, Event) error { return s.err }

type recordingSink struct{ events []Event }

func (s *recordingSink) Append(_ context.Context, e Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestManager_StateSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lib.db")
	clock := &FixedClock{Date: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	mgr, err := NewLibraryManager(dbPath, WithLogger(discardLogger), WithClock(clock))
	require.NoError(t, err)
	seed(t, mgr)
	_, err = mgr.Borrow(ctx, "B001", "M1")
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, "M002", "M2")
	require.NoError(t, err)
	_, err = mgr.ReturnItem(ctx, "M002", "M2")
	require.NoError(t, err)
	require.NoError(t, mgr.Close())

	reopened := newManager(t, dbPath, WithClock(clock))

	total, available, borrowed := reopened.Counts()
	assert.Equal(t, 5, total)
	assert.Equal(t, 4, available)
	assert.Equal(t, 1, borrowed)

	history := reopened.History()
	require.Len(t, history, 2)
	assert.Equal(t, "B001", history[0].ItemID)
	assert.False(t, history[0].Returned())
	assert.True(t, history[1].Returned())

	_, err = reopened.Borrow(ctx, "B001", "M3")
	assert.ErrorIs(t, err, ErrItemNotAvailable)
	_, err = reopened.ReturnItem(ctx, "B001", "M1")
	assert.NoError(t, err)

	events, err := reopened.Events(ctx, "")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, EventBorrow, events[0].Kind)
	assert.Equal(t, EventReturn, events[3].Kind)
}

func TestManager_WritesJournal(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "logs", "library_log.txt")
	clock := &FixedClock{Date: time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)}
	mgr := newManager(t, "", WithClock(clock), WithJournal(journal))
	seed(t, mgr)
	ctx := context.Background()

	_, err := mgr.Borrow(ctx, "B001", "BENGU001")
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, "B001", "AHMET002")
	require.ErrorIs(t, err, ErrItemNotAvailable)
	clock.Advance(2)
	_, err = mgr.ReturnItem(ctx, "B001", "BENGU001")
	require.NoError(t, err)

	data, err := os.ReadFile(journal)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		"[2026-10-15] BORROW | member=BENGU001 | item=B001 | title=Clean Code",
		"[2026-10-17] RETURN | member=BENGU001 | item=B001 | title=Clean Code",
	}, lines)
}

func TestManager_SinkFailureDoesNotRollBack(t *testing.T) {
	diskFull := errors.New("disk full")
	recorder := &recordingSink{}
	mgr := newManager(t, "", WithSink(failingSink{err: diskFull}), WithSink(recorder))
	seed(t, mgr)

	rec, err := mgr.Borrow(context.Background(), "B002", "M1")

	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, IsBusinessError(err))
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "borrow", storeErr.Op)
	assert.Equal(t, "B002", storeErr.ItemID)
	assert.Equal(t, "M1", storeErr.MemberID)

	assert.Equal(t, "B002", rec.ItemID)
	item, _ := mgr.GetItem("B002")
	assert.False(t, item.IsAvailable())
	active, ok := mgr.ActiveRecord("B002")
	require.True(t, ok)
	assert.Equal(t, rec.ID, active.ID)
	require.Len(t, recorder.events, 1, "remaining sinks are still attempted")
}

func TestManager_BusinessErrorsPublishNothing(t *testing.T) {
	recorder := &recordingSink{}
	mgr := newManager(t, "", WithSink(recorder))
	seed(t, mgr)
	ctx := context.Background()

	_, err := mgr.ReturnItem(ctx, "B999", "M1")
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = mgr.ReturnItem(ctx, "B001", "M2")
	assert.ErrorIs(t, err, ErrNoActiveRecord)
	assert.True(t, IsBusinessError(err))

	assert.Empty(t, recorder.events)
	assert.Empty(t, mgr.History())
}

func TestManager_SearchAndList(t *testing.T) {
	mgr := newManager(t, "")
	seed(t, mgr)

	found := mgr.SearchByTitle("SCIENCE")
	require.Len(t, found, 1)
	assert.Equal(t, "M001", found[0].ID)
	assert.Len(t, mgr.ListItems(), 5)

	_, err := mgr.Events(context.Background(), "")
	assert.Error(t, err, "in-memory manager has no event log")
}

func TestManager_SweepOverdue(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	clock := &FixedClock{Date: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}

	mgr := newManager(t, "", WithClock(clock), WithMetrics(metrics), WithLogger(logger))
	seed(t, mgr)
	ctx := context.Background()
	_, err = mgr.Borrow(ctx, "B001", "M1")
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, "B002", "M2")
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, "B002", "M3")
	require.ErrorIs(t, err, ErrItemNotAvailable)

	assert.Empty(t, mgr.SweepOverdue())

	clock.Advance(20)
	overdue := mgr.SweepOverdue()
	require.Len(t, overdue, 2)
	assert.Contains(t, logs.String(), "loan overdue")
	assert.Contains(t, logs.String(), "days_late=6")

	assert.Equal(t, 2.0, gaugeValue(t, reg, "library_records_overdue"))
	assert.Equal(t, 2.0, gaugeValue(t, reg, "library_items_borrowed"))
	assert.Equal(t, 2.0, counterValue(t, reg, "library_lending_operations_total", "borrow", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "library_lending_operations_total", "borrow", "item_not_available"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, op, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["op"] == op && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{op=%s,outcome=%s} not found", name, op, outcome)
	return 0
}

func TestManager_ReloadSeesOtherWriters(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lib.db")
	clock := &FixedClock{Date: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	watcher := newManager(t, dbPath, WithClock(clock))
	seed(t, watcher)
	desk := newManager(t, dbPath, WithClock(clock))

	rec, err := desk.Borrow(ctx, "B002", "M7")
	require.NoError(t, err)
	clock.Advance(LoanPeriodDays + 1)

	assert.Empty(t, watcher.SweepOverdue())

	require.NoError(t, watcher.Reload(ctx))

	overdue := watcher.SweepOverdue()
	require.Len(t, overdue, 1)
	assert.Equal(t, rec.ID, overdue[0].ID)
	item, _ := watcher.GetItem("B002")
	assert.False(t, item.IsAvailable())
	active, ok := watcher.ActiveRecord("B002")
	require.True(t, ok)
	assert.Equal(t, "M7", active.MemberID)
}

func TestManager_ReloadWithoutDatabase(t *testing.T) {
	mgr := newManager(t, "")
	seed(t, mgr)

	require.NoError(t, mgr.Reload(context.Background()))

	assert.Len(t, mgr.ListItems(), len(SeedItems()))
}
