package library

import (
	"iter"

	"github.com/google/uuid"
)

const (
	opBorrow = "borrow"
	opReturn = "return"
)

// Ledger is the append-only history of loans. It is the only place where an
// item moves between available and borrowed.
//
// An item has at most one record without a return date, and that record
// exists exactly when the item's availability flag is false.
type Ledger struct {
	catalog *Catalog
	clock   Clock
	records []*BorrowRecord
}

// NewLedger returns an empty ledger lending items out of catalog.
func NewLedger(catalog *Catalog, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ledger{catalog: catalog, clock: clock}
}

// Borrow lends itemID to memberID for LoanPeriodDays days.
//
// It fails with ErrItemNotFound or ErrItemNotAvailable; in either case nothing
// is changed.
func (l *Ledger) Borrow(itemID, memberID string) (BorrowRecord, error) {
	item, ok := l.catalog.lookup(itemID)
	if !ok {
		return BorrowRecord{}, &LendingError{Op: opBorrow, ItemID: itemID, MemberID: memberID, Err: ErrItemNotFound}
	}
	if !item.available {
		return BorrowRecord{}, &LendingError{Op: opBorrow, ItemID: itemID, MemberID: memberID, Err: ErrItemNotAvailable}
	}

	today := l.clock.Today()
	rec := &BorrowRecord{
		ID:         uuid.NewString(),
		MemberID:   memberID,
		ItemID:     itemID,
		BorrowDate: today,
		DueDate:    today.AddDate(0, 0, LoanPeriodDays),
	}
	item.available = false
	l.records = append(l.records, rec)
	return *rec, nil
}

// ReturnItem closes the open loan of itemID held by memberID.
//
// It fails with ErrItemNotFound or ErrNoActiveRecord; in either case nothing
// is changed.
func (l *Ledger) ReturnItem(itemID, memberID string) (BorrowRecord, error) {
	item, ok := l.catalog.lookup(itemID)
	if !ok {
		return BorrowRecord{}, &LendingError{Op: opReturn, ItemID: itemID, MemberID: memberID, Err: ErrItemNotFound}
	}

	for _, rec := range l.records {
		if !rec.active(itemID, memberID) {
			continue
		}
		today := l.clock.Today()
		rec.ReturnDate = &today
		item.available = true
		return *rec, nil
	}
	return BorrowRecord{}, &LendingError{Op: opReturn, ItemID: itemID, MemberID: memberID, Err: ErrNoActiveRecord}
}

// IsOverdue reports whether rec is still out and today is past its due date.
func (l *Ledger) IsOverdue(rec BorrowRecord) bool {
	return !rec.Returned() && l.clock.Today().After(rec.DueDate)
}

// ListOverdue yields the overdue records in creation order, judged against
// the clock at the time of iteration.
func (l *Ledger) ListOverdue() iter.Seq[BorrowRecord] {
	return func(yield func(BorrowRecord) bool) {
		for _, rec := range l.records {
			if l.IsOverdue(*rec) && !yield(*rec) {
				return
			}
		}
	}
}

// AllRecords yields the full history in creation order.
func (l *Ledger) AllRecords() iter.Seq[BorrowRecord] {
	return func(yield func(BorrowRecord) bool) {
		for _, rec := range l.records {
			if !yield(*rec) {
				return
			}
		}
	}
}

// ActiveRecord returns the open loan of itemID, if any.
func (l *Ledger) ActiveRecord(itemID string) (BorrowRecord, bool) {
	for _, rec := range l.records {
		if rec.ItemID == itemID && !rec.Returned() {
			return *rec, true
		}
	}
	return BorrowRecord{}, false
}

// Len is the number of records in the history.
func (l *Ledger) Len() int { return len(l.records) }

// restore replays persisted history. Records must arrive in creation order;
// each open record marks its item as borrowed.
func (l *Ledger) restore(records []BorrowRecord) {
	for i := range records {
		rec := records[i]
		l.records = append(l.records, &rec)
		if rec.Returned() {
			continue
		}
		if item, ok := l.catalog.lookup(rec.ItemID); ok {
			item.available = false
		}
	}
}
