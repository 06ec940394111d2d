package library

import (
	"context"
	"fmt"
	"time"
)

// EventKind names a lending transition.
type EventKind string

const (
	EventBorrow EventKind = "BORROW"
	EventReturn EventKind = "RETURN"
)

// Event describes a completed lending transition for the outside world.
type Event struct {
	Kind     EventKind `json:"kind"`
	MemberID string    `json:"member_id"`
	ItemID   string    `json:"item_id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
}

// NewEvent builds the event for a transition on rec.
func NewEvent(kind EventKind, rec BorrowRecord, title string, date time.Time) Event {
	return Event{Kind: kind, MemberID: rec.MemberID, ItemID: rec.ItemID, Title: title, Date: date}
}

// String renders the event as a single log line, without the date.
func (e Event) String() string {
	return fmt.Sprintf("%s | member=%s | item=%s | title=%s", e.Kind, e.MemberID, e.ItemID, e.Title)
}

// EventSink accepts lending events. A failed Append is reported to the
// caller; it never undoes the transition that produced the event.
type EventSink interface {
	Append(ctx context.Context, event Event) error
}
