package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"library-lending/library"
)

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  Catalog: list items, search")
	fmt.Fprintln(out, "  Circulation: borrow, return")
	fmt.Fprintln(out, "  Reports: overdue, history")
	fmt.Fprintln(out, "  System: help, exit")
}

// runShell reads commands from in until "exit" or end of input.
func runShell(ctx context.Context, in io.Reader, out io.Writer, mgr *library.LibraryManager) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Welcome to the Library Lending System!")
	printShellHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "list items":
			if err := printCatalog(out, mgr, false); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		case "search":
			handleSearch(scanner, out, mgr)
		case "borrow":
			handleBorrow(ctx, scanner, out, mgr)
		case "return":
			handleReturn(ctx, scanner, out, mgr)
		case "overdue":
			if err := printRecords(out, viewRecords(mgr, mgr.Overdue()), false); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		case "history":
			if err := printRecords(out, viewRecords(mgr, mgr.History()), false); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		case "help":
			printShellHelp(out)
		case "":
			continue
		case "exit":
			fmt.Fprintln(out, "Goodbye!")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func ask(sc *bufio.Scanner, out io.Writer, label string) (string, bool) {
	fmt.Fprint(out, label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func handleSearch(sc *bufio.Scanner, out io.Writer, mgr *library.LibraryManager) {
	keyword, ok := ask(sc, out, "Title contains (empty for all): ")
	if !ok {
		return
	}
	fmt.Fprintf(out, "\nResults for '%s':\n", keyword)
	printItems(out, viewItems(mgr, mgr.SearchByTitle(keyword)))
}

func askIDs(sc *bufio.Scanner, out io.Writer) (itemID, memberID string, ok bool) {
	if itemID, ok = ask(sc, out, "Item ID: "); !ok || itemID == "" {
		return "", "", false
	}
	if memberID, ok = ask(sc, out, "Member ID: "); !ok || memberID == "" {
		return "", "", false
	}
	return itemID, memberID, true
}

func handleBorrow(ctx context.Context, sc *bufio.Scanner, out io.Writer, mgr *library.LibraryManager) {
	itemID, memberID, ok := askIDs(sc, out)
	if !ok {
		fmt.Fprintln(out, "Item ID and member ID are required.")
		return
	}
	rec, err := mgr.Borrow(ctx, itemID, memberID)
	if err := reportLending(out, mgr, rec, err, false); err != nil {
		fmt.Fprintf(out, "Error borrowing item: %v\n", err)
	}
}

func handleReturn(ctx context.Context, sc *bufio.Scanner, out io.Writer, mgr *library.LibraryManager) {
	itemID, memberID, ok := askIDs(sc, out)
	if !ok {
		fmt.Fprintln(out, "Item ID and member ID are required.")
		return
	}
	rec, err := mgr.ReturnItem(ctx, itemID, memberID)
	if err := reportLending(out, mgr, rec, err, false); err != nil {
		fmt.Fprintf(out, "Error returning item: %v\n", err)
	}
}
