package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadItems(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	for _, item := range SeedItems() {
		if err := db.SaveItem(ctx, item); err != nil {
			t.Fatalf("save %s: %v", item.ID, err)
		}
	}

	items, err := db.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("want 5 items, got %d", len(items))
	}
	if items[0].ID != "B001" || items[4].ID != "M002" {
		t.Fatalf("order not preserved: first=%s last=%s", items[0].ID, items[4].ID)
	}
	if items[0].Book == nil || items[0].Book.Author != "Robert C. Martin" || items[0].Book.PageCount != 431 {
		t.Fatalf("book details lost: %+v", items[0].Book)
	}
	if items[3].Magazine == nil || items[3].Magazine.Publisher != "Bonnier Corp" {
		t.Fatalf("magazine details lost: %+v", items[3].Magazine)
	}
	for _, item := range items {
		if !item.IsAvailable() {
			t.Fatalf("item %s should be available", item.ID)
		}
	}
}

func TestSaveItemReplacesInPlace(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	for _, item := range SeedItems() {
		if err := db.SaveItem(ctx, item); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := db.SaveItem(ctx, NewBook("B001", "Clean Code 2", "Robert C. Martin", "x", 1)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	items, err := db.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("want 5 items, got %d", len(items))
	}
	if items[0].ID != "B001" || items[0].Title != "Clean Code 2" {
		t.Fatalf("replacement moved or lost: %+v", items[0])
	}
}

func TestSaveTransitionFlow(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	if err := db.SaveItem(ctx, NewBook("B001", "Clean Code", "Robert C. Martin", "978-0132350884", 431)); err != nil {
		t.Fatalf("save item: %v", err)
	}

	borrowed := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	rec := BorrowRecord{
		ID:         "rec-1",
		MemberID:   "M1",
		ItemID:     "B001",
		BorrowDate: borrowed,
		DueDate:    borrowed.AddDate(0, 0, LoanPeriodDays),
	}
	if err := db.SaveTransition(ctx, rec, false); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	items, _ := db.LoadItems(ctx)
	if items[0].IsAvailable() {
		t.Fatalf("item should be borrowed")
	}

	returned := borrowed.AddDate(0, 0, 3)
	rec.ReturnDate = &returned
	if err := db.SaveTransition(ctx, rec, true); err != nil {
		t.Fatalf("return: %v", err)
	}

	records, err := db.LoadRecords(ctx)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != "rec-1" || !got.BorrowDate.Equal(borrowed) || !got.DueDate.Equal(rec.DueDate) {
		t.Fatalf("record mismatch: %+v", got)
	}
	if got.ReturnDate == nil || !got.ReturnDate.Equal(returned) {
		t.Fatalf("return date lost: %v", got.ReturnDate)
	}

	items, _ = db.LoadItems(ctx)
	if !items[0].IsAvailable() {
		t.Fatalf("item should be available again")
	}
}

func TestSaveTransitionUnknownItem(t *testing.T) {
	db := tempDB(t)
	rec := BorrowRecord{ID: "r", MemberID: "M1", ItemID: "missing", BorrowDate: time.Now(), DueDate: time.Now()}
	if err := db.SaveTransition(context.Background(), rec, false); err == nil {
		t.Fatalf("expected foreign key error")
	}
}

func TestEventLog(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	day := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)

	events := []Event{
		{Kind: EventBorrow, MemberID: "M1", ItemID: "B001", Title: "Clean Code", Date: day},
		{Kind: EventBorrow, MemberID: "M2", ItemID: "M001", Title: "Popular Science", Date: day},
		{Kind: EventReturn, MemberID: "M1", ItemID: "B001", Title: "Clean Code", Date: day.AddDate(0, 0, 1)},
	}
	for _, e := range events {
		if err := db.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := db.Events(ctx, "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(all) != 3 || all[2].Kind != EventReturn || !all[2].Date.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected events: %+v", all)
	}

	forItem, err := db.Events(ctx, "B001")
	if err != nil {
		t.Fatalf("events for item: %v", err)
	}
	if len(forItem) != 2 {
		t.Fatalf("want 2 events for B001, got %d", len(forItem))
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.SaveItem(context.Background(), NewMagazine("M001", "Popular Science", "Bonnier Corp", 245)); err != nil {
		t.Fatalf("save: %v", err)
	}
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	items, err := db.LoadItems(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item after reopen, got %d", len(items))
	}
}
