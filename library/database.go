package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var dialect = goqu.Dialect("sqlite3")

// Database persists the catalog, the loan history and the event log in SQLite.
type Database struct {
	db *sqlx.DB
}

var _ EventSink = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL lets the watch command read while the CLI writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            id TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            kind TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            page_count INTEGER NOT NULL DEFAULT 0,
            publisher TEXT NOT NULL DEFAULT '',
            issue_number INTEGER NOT NULL DEFAULT 0,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS records (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            member_id TEXT NOT NULL,
            item_id TEXT NOT NULL REFERENCES items(id),
            borrow_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_item ON records(item_id);`,
		`CREATE TABLE IF NOT EXISTS events (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            kind TEXT NOT NULL,
            member_id TEXT NOT NULL,
            item_id TEXT NOT NULL,
            title TEXT NOT NULL,
            date TEXT NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRow struct {
	ID          string `db:"id"`
	Kind        string `db:"kind"`
	Title       string `db:"title"`
	Author      string `db:"author"`
	ISBN        string `db:"isbn"`
	PageCount   int    `db:"page_count"`
	Publisher   string `db:"publisher"`
	IssueNumber int    `db:"issue_number"`
	Available   bool   `db:"available"`
}

func (r itemRow) item() Item {
	var item Item
	switch Kind(r.Kind) {
	case KindMagazine:
		item = NewMagazine(r.ID, r.Title, r.Publisher, r.IssueNumber)
	default:
		item = NewBook(r.ID, r.Title, r.Author, r.ISBN, r.PageCount)
	}
	item.available = r.Available
	return item
}

// SaveItem inserts item, or overwrites the stored item with the same ID while
// keeping its original position.
func (d *Database) SaveItem(ctx context.Context, item Item) error {
	row := itemRow{ID: item.ID, Kind: string(item.Kind), Title: item.Title, Available: item.available}
	switch item.Kind {
	case KindBook:
		if item.Book != nil {
			row.Author, row.ISBN, row.PageCount = item.Book.Author, item.Book.ISBN, item.Book.PageCount
		}
	case KindMagazine:
		if item.Magazine != nil {
			row.Publisher, row.IssueNumber = item.Magazine.Publisher, item.Magazine.IssueNumber
		}
	}

	_, err := d.db.NamedExecContext(ctx, `
        INSERT INTO items(id,seq,kind,title,author,isbn,page_count,publisher,issue_number,available)
        VALUES(:id,(SELECT COALESCE(MAX(seq),0)+1 FROM items),:kind,:title,:author,:isbn,:page_count,:publisher,:issue_number,:available)
        ON CONFLICT(id) DO UPDATE SET
            kind=excluded.kind, title=excluded.title, author=excluded.author, isbn=excluded.isbn,
            page_count=excluded.page_count, publisher=excluded.publisher,
            issue_number=excluded.issue_number, available=excluded.available`, row)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	return nil
}

// LoadItems returns every stored item in insertion order.
func (d *Database) LoadItems(ctx context.Context) ([]Item, error) {
	query, args, err := dialect.From("items").
		Select("id", "kind", "title", "author", "isbn", "page_count", "publisher", "issue_number", "available").
		Order(goqu.C("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	var rows []itemRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

type recordRow struct {
	ID         string         `db:"id"`
	MemberID   string         `db:"member_id"`
	ItemID     string         `db:"item_id"`
	BorrowDate string         `db:"borrow_date"`
	DueDate    string         `db:"due_date"`
	ReturnDate sql.NullString `db:"return_date"`
}

func (r recordRow) record() (BorrowRecord, error) {
	rec := BorrowRecord{ID: r.ID, MemberID: r.MemberID, ItemID: r.ItemID}
	var err error
	if rec.BorrowDate, err = ParseDate(r.BorrowDate); err != nil {
		return BorrowRecord{}, err
	}
	if rec.DueDate, err = ParseDate(r.DueDate); err != nil {
		return BorrowRecord{}, err
	}
	if r.ReturnDate.Valid {
		returned, err := ParseDate(r.ReturnDate.String)
		if err != nil {
			return BorrowRecord{}, err
		}
		rec.ReturnDate = &returned
	}
	return rec, nil
}

// SaveTransition stores rec and the resulting availability of its item in
// one transaction.
func (d *Database) SaveTransition(ctx context.Context, rec BorrowRecord, itemAvailable bool) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var returned sql.NullString
	if rec.ReturnDate != nil {
		returned = sql.NullString{String: rec.ReturnDate.Format(DateLayout), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO records(id,member_id,item_id,borrow_date,due_date,return_date) VALUES(?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET return_date=excluded.return_date`,
		rec.ID, rec.MemberID, rec.ItemID,
		rec.BorrowDate.Format(DateLayout), rec.DueDate.Format(DateLayout), returned,
	); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}

	query, args, err := dialect.Update("items").
		Set(goqu.Record{"available": itemAvailable}).
		Where(goqu.C("id").Eq(rec.ItemID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build availability update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update availability of %s: %w", rec.ItemID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadRecords returns the loan history in creation order.
func (d *Database) LoadRecords(ctx context.Context) ([]BorrowRecord, error) {
	query, args, err := dialect.From("records").
		Select("id", "member_id", "item_id", "borrow_date", "due_date", "return_date").
		Order(goqu.C("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}

	var rows []recordRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	records := make([]BorrowRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Event log
// ---------------------------------------------------------------------------

type eventRow struct {
	Kind     string `db:"kind"`
	MemberID string `db:"member_id"`
	ItemID   string `db:"item_id"`
	Title    string `db:"title"`
	Date     string `db:"date"`
}

// Append stores event in the events table.
func (d *Database) Append(ctx context.Context, event Event) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO events(kind,member_id,item_id,title,date) VALUES(?,?,?,?,?)`,
		string(event.Kind), event.MemberID, event.ItemID, event.Title, event.Date.Format(DateLayout),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events returns the stored events in the order they were appended. A
// non-empty itemID restricts the result to that item.
func (d *Database) Events(ctx context.Context, itemID string) ([]Event, error) {
	ds := dialect.From("events").
		Select("kind", "member_id", "item_id", "title", "date").
		Order(goqu.C("seq").Asc())
	if itemID != "" {
		ds = ds.Where(goqu.C("item_id").Eq(itemID))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}

	var rows []eventRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("event date %q: %w", r.Date, err)
		}
		events = append(events, Event{
			Kind:     EventKind(r.Kind),
			MemberID: r.MemberID,
			ItemID:   r.ItemID,
			Title:    r.Title,
			Date:     date,
		})
	}
	return events, nil
}
