package library

import (
	"iter"
	"strings"
)

// Catalog owns the library's items, keyed by ID, in insertion order.
type Catalog struct {
	items map[string]*Item
	order []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*Item)}
}

// AddItem stores item under its ID. An item with the same ID is replaced in
// place: it keeps its position in the listing and its availability. A new
// item always starts on the shelf; only the ledger marks items as lent.
func (c *Catalog) AddItem(item Item) {
	if existing, ok := c.items[item.ID]; ok {
		item.available = existing.available
		*existing = item
		return
	}
	stored := item
	stored.available = true
	c.items[item.ID] = &stored
	c.order = append(c.order, item.ID)
}

// GetItem looks an item up by ID. The boolean is false when no such item exists.
func (c *Catalog) GetItem(id string) (Item, bool) {
	item, ok := c.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// lookup hands the ledger the stored item so it can flip availability.
func (c *Catalog) lookup(id string) (*Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// SearchByTitle yields the items whose title contains keyword, ignoring case,
// in insertion order. An empty keyword matches everything. The sequence is
// evaluated on each range, so it can be iterated again.
func (c *Catalog) SearchByTitle(keyword string) iter.Seq[Item] {
	needle := strings.ToLower(keyword)
	return c.filter(func(item *Item) bool {
		return strings.Contains(strings.ToLower(item.Title), needle)
	})
}

// ListAll yields every item in insertion order.
func (c *Catalog) ListAll() iter.Seq[Item] {
	return c.filter(func(*Item) bool { return true })
}

func (c *Catalog) filter(keep func(*Item) bool) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, id := range c.order {
			item := c.items[id]
			if !keep(item) {
				continue
			}
			if !yield(*item) {
				return
			}
		}
	}
}

// Len is the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.order) }

// CountAvailable is the number of items on the shelf.
func (c *Catalog) CountAvailable() int {
	n := 0
	for _, item := range c.items {
		if item.available {
			n++
		}
	}
	return n
}

// CountBorrowed is the number of items out on loan.
func (c *Catalog) CountBorrowed() int { return c.Len() - c.CountAvailable() }
