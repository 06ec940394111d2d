package main

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type itemView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Details   string `json:"details"`
	Available bool   `json:"available"`
	Borrower  string `json:"borrower,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
}

type recordView struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	ItemID     string `json:"item_id"`
	BorrowDate string `json:"borrow_date"`
	DueDate    string `json:"due_date"`
	ReturnDate string `json:"return_date,omitempty"`
	Status     string `json:"status"`
}

type catalogView struct {
	Items     []itemView `json:"items"`
	Total     int        `json:"total"`
	Available int        `json:"available"`
	Borrowed  int        `json:"borrowed"`
}

func details(item library.Item) string {
	switch item.Kind {
	case library.KindBook:
		if item.Book != nil {
			return fmt.Sprintf("Author: %s | %d pages", item.Book.Author, item.Book.PageCount)
		}
	case library.KindMagazine:
		if item.Magazine != nil {
			return fmt.Sprintf("Publisher: %s | Issue: %d", item.Magazine.Publisher, item.Magazine.IssueNumber)
		}
	}
	return ""
}

func viewItems(mgr *library.LibraryManager, items []library.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		v := itemView{
			ID:        item.ID,
			Kind:      string(item.Kind),
			Title:     item.Title,
			Details:   details(item),
			Available: item.IsAvailable(),
		}
		if rec, ok := mgr.ActiveRecord(item.ID); ok {
			v.Borrower = rec.MemberID
			v.DueDate = rec.DueDate.Format(library.DateLayout)
		}
		views = append(views, v)
	}
	return views
}

func viewRecord(mgr *library.LibraryManager, rec library.BorrowRecord) recordView {
	v := recordView{
		ID:         rec.ID,
		MemberID:   rec.MemberID,
		ItemID:     rec.ItemID,
		BorrowDate: rec.BorrowDate.Format(library.DateLayout),
		DueDate:    rec.DueDate.Format(library.DateLayout),
		Status:     "active",
	}
	switch {
	case rec.Returned():
		v.ReturnDate = rec.ReturnDate.Format(library.DateLayout)
		v.Status = "returned"
	case mgr.IsOverdue(rec):
		v.Status = "overdue"
	}
	return v
}

func viewRecords(mgr *library.LibraryManager, records []library.BorrowRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewRecord(mgr, rec))
	}
	return views
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCatalog(w io.Writer, mgr *library.LibraryManager, asJSON bool) error {
	total, available, borrowed := mgr.Counts()
	view := catalogView{
		Items:     viewItems(mgr, mgr.ListItems()),
		Total:     total,
		Available: available,
		Borrowed:  borrowed,
	}
	if asJSON {
		return writeJSON(w, view)
	}
	printItems(w, view.Items)
	fmt.Fprintf(w, "\nTotal: %d | Available: %d | Borrowed: %d\n", total, available, borrowed)
	return nil
}

func printItems(w io.Writer, items []itemView) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	fmt.Fprintf(w, "%-6s %-9s %-30s %-35s %-10s %s\n", "ID", "Kind", "Title", "Details", "Available", "Borrower")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, it := range items {
		availStr := "Yes"
		borrower := "None"
		if !it.Available {
			availStr = "No"
			borrower = fmt.Sprintf("%s (due %s)", it.Borrower, it.DueDate)
		}
		fmt.Fprintf(w, "%-6s %-9s %-30s %-35s %-10s %s\n",
			it.ID,
			it.Kind,
			truncateString(it.Title, 30),
			truncateString(it.Details, 35),
			availStr,
			borrower)
	}
}

func printRecords(w io.Writer, records []recordView, asJSON bool) error {
	if asJSON {
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return nil
	}
	fmt.Fprintf(w, "%-12s %-6s %-11s %-11s %-11s %s\n", "Member", "Item", "Borrowed", "Due", "Returned", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, r := range records {
		returned := r.ReturnDate
		if returned == "" {
			returned = "-"
		}
		fmt.Fprintf(w, "%-12s %-6s %-11s %-11s %-11s %s\n",
			truncateString(r.MemberID, 12), r.ItemID, r.BorrowDate, r.DueDate, returned, r.Status)
	}
	return nil
}

func printEvents(w io.Writer, events []library.Event, asJSON bool) error {
	if asJSON {
		return writeJSON(w, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(w, "[%s] %s\n", e.Date.Format(library.DateLayout), e)
	}
	return nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
