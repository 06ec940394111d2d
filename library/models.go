package library

import "time"

// Kind tags which variant an Item carries.
type Kind string

const (
	KindBook     Kind = "book"
	KindMagazine Kind = "magazine"
)

// BookDetails holds the attributes only books have.
type BookDetails struct {
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	PageCount int    `json:"page_count"`
}

// MagazineDetails holds the attributes only magazines have.
type MagazineDetails struct {
	Publisher   string `json:"publisher"`
	IssueNumber int    `json:"issue_number"`
}

// Item is a single physical catalog entry. Exactly one of Book or Magazine is
// set, matching Kind.
//
// The availability flag is unexported: only the Ledger flips it.
type Item struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Kind     Kind             `json:"kind"`
	Book     *BookDetails     `json:"book,omitempty"`
	Magazine *MagazineDetails `json:"magazine,omitempty"`

	available bool
}

// NewBook returns an available book.
func NewBook(id, title, author, isbn string, pageCount int) Item {
	return Item{
		ID:        id,
		Title:     title,
		Kind:      KindBook,
		Book:      &BookDetails{Author: author, ISBN: isbn, PageCount: pageCount},
		available: true,
	}
}

// NewMagazine returns an available magazine.
func NewMagazine(id, title, publisher string, issueNumber int) Item {
	return Item{
		ID:        id,
		Title:     title,
		Kind:      KindMagazine,
		Magazine:  &MagazineDetails{Publisher: publisher, IssueNumber: issueNumber},
		available: true,
	}
}

// IsAvailable reports whether the item may be borrowed right now.
func (i Item) IsAvailable() bool { return i.available }

// LoanPeriodDays is how long a member may keep an item.
const LoanPeriodDays = 14

// BorrowRecord is one loan of one item to one member. ReturnDate stays nil
// until the item comes back.
type BorrowRecord struct {
	ID         string     `json:"id"`
	MemberID   string     `json:"member_id"`
	ItemID     string     `json:"item_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Returned reports whether the loan has been closed.
func (r BorrowRecord) Returned() bool { return r.ReturnDate != nil }

// active matches the open loan of itemID held by memberID.
func (r BorrowRecord) active(itemID, memberID string) bool {
	return r.ItemID == itemID && r.MemberID == memberID && !r.Returned()
}
