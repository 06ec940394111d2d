package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// LibraryManager is the façade the CLI talks to. It owns the catalog and the
// ledger, restores them from the database on open, and pushes every lending
// transition to the database and the configured event sinks.
//
// One mutex guards the catalog and ledger together, so the availability flag
// and the open record of an item always change as a pair.
type LibraryManager struct {
	mu      sync.Mutex
	catalog *Catalog
	ledger  *Ledger
	clock   Clock

	db      *Database
	sinks   []EventSink
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a LibraryManager.
type Option func(*LibraryManager) error

// WithClock sets the date source for loans. Defaults to SystemClock.
func WithClock(clock Clock) Option {
	return func(m *LibraryManager) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}
		m.clock = clock
		return nil
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *LibraryManager) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithSink adds an event sink that receives every lending transition.
func WithSink(sink EventSink) Option {
	return func(m *LibraryManager) error {
		if sink == nil {
			return errors.New("sink must not be nil")
		}
		m.sinks = append(m.sinks, sink)
		return nil
	}
}

// WithJournal appends lending events to the text file at path.
func WithJournal(path string) Option {
	return WithSink(NewFileJournal(path))
}

// WithMetrics reports lending activity to metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *LibraryManager) error {
		m.metrics = metrics
		return nil
	}
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath and
// restores the catalog and loan history from it. An empty dbPath keeps
// everything in memory.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	m := &LibraryManager{
		catalog: NewCatalog(),
		clock:   SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.ledger = NewLedger(m.catalog, m.clock)

	if dbPath == "" {
		return m, nil
	}

	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	if err := m.restore(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	m.db = db
	m.sinks = append(m.sinks, db)
	return m, nil
}

// restore rebuilds the catalog and ledger from db and swaps them in. Item
// availability is derived from the open records, not from the stored flag.
func (m *LibraryManager) restore(ctx context.Context, db *Database) error {
	items, err := db.LoadItems(ctx)
	if err != nil {
		return err
	}
	records, err := db.LoadRecords(ctx)
	if err != nil {
		return err
	}

	catalog := NewCatalog()
	for _, item := range items {
		catalog.AddItem(item)
	}
	ledger := NewLedger(catalog, m.clock)
	ledger.restore(records)
	m.catalog, m.ledger = catalog, ledger

	m.metrics.observeBorrowed(m.catalog.CountBorrowed())
	m.logger.Debug("library restored", "items", len(items), "records", len(records))
	return nil
}

// Reload re-reads the catalog and loan history from the database, picking up
// changes made by other processes. It is a no-op without a database.
func (m *LibraryManager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	if err := m.restore(ctx, m.db); err != nil {
		return fmt.Errorf("reload library: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (m *LibraryManager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Today is the manager's notion of the current date.
func (m *LibraryManager) Today() time.Time { return m.clock.Today() }

// ------------------ Catalog ------------------

// AddItem adds item to the catalog, replacing any item with the same ID, and
// stores it.
func (m *LibraryManager) AddItem(ctx context.Context, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalog.AddItem(item)
	stored, _ := m.catalog.GetItem(item.ID)
	m.logger.Debug("item added", "item_id", item.ID, "kind", item.Kind, "title", item.Title)
	if m.db == nil {
		return nil
	}
	return m.db.SaveItem(ctx, stored)
}

// GetItem returns a copy of the item with the given ID.
func (m *LibraryManager) GetItem(id string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.GetItem(id)
}

// SearchByTitle returns the items whose title contains keyword, ignoring case.
func (m *LibraryManager) SearchByTitle(keyword string) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.catalog.SearchByTitle(keyword))
}

// ListItems returns every item in insertion order.
func (m *LibraryManager) ListItems() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.catalog.ListAll())
}

// Counts returns the total, available and borrowed item counts.
func (m *LibraryManager) Counts() (total, available, borrowed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Len(), m.catalog.CountAvailable(), m.catalog.CountBorrowed()
}

// ------------------ Circulation ------------------

// Borrow lends itemID to memberID.
//
// Business outcomes come back as a *LendingError and leave all state as it
// was. A *StoreError means the loan was made but could not be fully written
// out; the returned record is valid in that case.
func (m *LibraryManager) Borrow(ctx context.Context, itemID, memberID string) (BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.ledger.Borrow(itemID, memberID)
	m.metrics.observe(opBorrow, err, m.catalog.CountBorrowed())
	if err != nil {
		m.logger.Debug("borrow rejected", "item_id", itemID, "member_id", memberID, "reason", err)
		return BorrowRecord{}, err
	}
	m.logger.Info("item borrowed",
		"item_id", itemID,
		"member_id", memberID,
		"due", rec.DueDate.Format(DateLayout),
	)
	return rec, m.publish(ctx, opBorrow, EventBorrow, rec, true)
}

// ReturnItem closes memberID's loan of itemID. Errors follow Borrow.
func (m *LibraryManager) ReturnItem(ctx context.Context, itemID, memberID string) (BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.ledger.ReturnItem(itemID, memberID)
	m.metrics.observe(opReturn, err, m.catalog.CountBorrowed())
	if err != nil {
		m.logger.Debug("return rejected", "item_id", itemID, "member_id", memberID, "reason", err)
		return BorrowRecord{}, err
	}
	m.logger.Info("item returned",
		"item_id", itemID,
		"member_id", memberID,
		"overdue", rec.ReturnDate.After(rec.DueDate),
	)
	return rec, m.publish(ctx, opReturn, EventReturn, rec, false)
}

// publish writes a committed transition to the database and every sink.
// All of them are attempted; their failures are reported together.
func (m *LibraryManager) publish(ctx context.Context, op string, kind EventKind, rec BorrowRecord, borrowed bool) error {
	var errs []error
	if m.db != nil {
		if err := m.db.SaveTransition(ctx, rec, !borrowed); err != nil {
			errs = append(errs, err)
		}
	}

	date := rec.BorrowDate
	if rec.ReturnDate != nil {
		date = *rec.ReturnDate
	}
	item, _ := m.catalog.GetItem(rec.ItemID)
	event := NewEvent(kind, rec, item.Title, date)
	for _, sink := range m.sinks {
		if err := sink.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	err := &StoreError{Op: op, ItemID: rec.ItemID, MemberID: rec.MemberID, Err: errors.Join(errs...)}
	m.logger.Error("lending transition not persisted", "op", op, "item_id", rec.ItemID, "member_id", rec.MemberID, "error", err.Err)
	return err
}

// ------------------ Queries ------------------

// IsOverdue reports whether rec is open and past its due date today.
func (m *LibraryManager) IsOverdue(rec BorrowRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.IsOverdue(rec)
}

// Overdue returns the open loans past their due date, oldest first.
func (m *LibraryManager) Overdue() []BorrowRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.ledger.ListOverdue())
}

// History returns every loan ever made, oldest first.
func (m *LibraryManager) History() []BorrowRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.ledger.AllRecords())
}

// ActiveRecord returns the open loan of itemID, if any.
func (m *LibraryManager) ActiveRecord(itemID string) (BorrowRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.ActiveRecord(itemID)
}

// Events returns the stored event log, optionally for a single item.
func (m *LibraryManager) Events(ctx context.Context, itemID string) ([]Event, error) {
	if m.db == nil {
		return nil, fmt.Errorf("event log needs a database")
	}
	return m.db.Events(ctx, itemID)
}

// SweepOverdue collects the overdue loans, logs each one and updates the
// overdue gauge.
func (m *LibraryManager) SweepOverdue() []BorrowRecord {
	overdue := m.Overdue()
	today := m.Today()
	for _, rec := range overdue {
		m.logger.Warn("loan overdue",
			"item_id", rec.ItemID,
			"member_id", rec.MemberID,
			"due", rec.DueDate.Format(DateLayout),
			"days_late", int(today.Sub(rec.DueDate).Hours()/24),
		)
	}
	m.metrics.setOverdue(len(overdue))
	return overdue
}
