package library

// SeedItems returns the demo catalog: three books and two magazines.
func SeedItems() []Item {
	return []Item{
		NewBook("B001", "Clean Code", "Robert C. Martin", "978-0132350884", 431),
		NewBook("B002", "Design Patterns", "Gang of Four", "978-0201633610", 395),
		NewBook("B003", "The Pragmatic Programmer", "Andrew Hunt", "978-0135957059", 352),
		NewMagazine("M001", "Popular Science", "Bonnier Corp", 245),
		NewMagazine("M002", "IEEE Spectrum", "IEEE", 102),
	}
}
