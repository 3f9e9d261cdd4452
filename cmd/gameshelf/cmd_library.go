package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ryanm101/gameshelf/internal/library"
)

func handleLibraryCommand(ctx context.Context, args []string) int {
	switch args[0] {
	case "list":
		return libraryList(ctx, args[1:])
	case "show":
		return libraryShow(ctx, args[1:])
	case "add":
		return libraryAdd(ctx, args[1:])
	case "edit":
		return libraryEdit(ctx, args[1:])
	case "remove":
		return libraryRemove(ctx, args[1:])
	default:
		fmt.Printf("Unknown library command: %s\n", args[0])
		return 1
	}
}

func libraryList(ctx context.Context, args []string) int {
	_, flags := splitArgs(args)

	var only library.Status
	if v, ok := flagValue(flags, "status"); ok {
		st, err := library.ParseStatus(v)
		if err != nil {
			PrintError("Error: %v\n", err)
			return 1
		}
		only = st
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	var entries []library.Entry
	for _, e := range store.Entries() {
		if only == "" || e.Status == only {
			entries = append(entries, e)
		}
	}

	if outputCfg.JSON {
		if entries == nil {
			entries = []library.Entry{}
		}
		PrintResult(entries)
		return 0
	}
	if len(entries) == 0 {
		PrintInfo("Library is empty. Add games with 'gameshelf library add'.\n")
		return 0
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Game.ID),
			truncate(e.Game.Name, 40),
			string(e.Status),
			formatRating(e.Rating),
			e.DateAdded.Local().Format("2006-01-02"),
			truncate(e.Comment, 30),
		})
	}
	PrintTable([]string{"ID", "NAME", "STATUS", "RATING", "ADDED", "COMMENT"}, rows)
	return 0
}

func libraryShow(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: gameshelf library show <game_id>")
		return 1
	}
	id, err := parseGameID(args[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	entry, ok := store.StatusOf(id)
	if !ok {
		PrintError("Error: game %d is not in the library\n", id)
		return 1
	}
	if outputCfg.JSON {
		PrintResult(entry)
		return 0
	}

	printGame(entry.Game)
	fmt.Printf("  Status:     %s\n", entry.Status)
	fmt.Printf("  My rating:  %s\n", formatRating(entry.Rating))
	if entry.Comment != "" {
		fmt.Printf("  Comment:    %s\n", entry.Comment)
	}
	fmt.Printf("  Added:      %s\n", entry.DateAdded.Local().Format(time.RFC1123))
	return 0
}

func libraryAdd(ctx context.Context, args []string) int {
	positional, flags := splitArgs(args)
	if len(positional) < 2 {
		fmt.Println("Usage: gameshelf library add <game_id> <status> [--rating=r] [--comment=c]")
		return 1
	}
	id, err := parseGameID(positional[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	details, err := detailsFromFlags(library.Details{Status: library.Status(positional[1])}, flags)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	if err := details.Validate(); err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	if _, ok := store.StatusOf(id); ok {
		PrintError("Error: game %d is already in the library, use 'library edit'\n", id)
		return 1
	}

	client, err := newCatalogClient(ctx)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	game, err := client.GetGame(ctx, id)
	if err != nil {
		PrintError("Error: failed to fetch game %d: %v\n", id, err)
		return 1
	}
	if hidden(*game) {
		PrintError("Error: game %d is hidden by the content filter\n", id)
		return 1
	}

	entry, err := store.Add(ctx, *game, details)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	if outputCfg.JSON {
		PrintResult(entry)
	} else {
		PrintInfo("Added %s as %s\n", entry.Game.Name, entry.Status)
	}
	return 0
}

func libraryEdit(ctx context.Context, args []string) int {
	positional, flags := splitArgs(args)
	if len(positional) < 1 {
		fmt.Println("Usage: gameshelf library edit <game_id> [--status=s] [--rating=r|--clear-rating] [--comment=c]")
		return 1
	}
	id, err := parseGameID(positional[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	current, ok := store.StatusOf(id)
	if !ok {
		PrintError("Error: game %d is not in the library\n", id)
		return 1
	}
	details, err := detailsFromFlags(current.Details(), flags)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	entry, err := store.Update(ctx, id, details)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	if outputCfg.JSON {
		PrintResult(entry)
	} else {
		PrintInfo("Updated %s: %s, rating %s\n", entry.Game.Name, entry.Status, formatRating(entry.Rating))
	}
	return 0
}

func libraryRemove(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: gameshelf library remove <game_id>")
		return 1
	}
	id, err := parseGameID(args[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	removed, err := store.Remove(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		if errors.Is(err, library.ErrPersistenceWrite) {
			PrintError("The library on disk was not changed.\n")
		}
		return 1
	}

	if outputCfg.JSON {
		PrintResult(map[string]interface{}{"id": id, "removed": removed})
	} else if removed {
		PrintInfo("Removed game %d\n", id)
	} else {
		PrintInfo("Game %d was not in the library\n", id)
	}
	return 0
}

// detailsFromFlags applies --status, --rating, --clear-rating and --comment to d.
func detailsFromFlags(d library.Details, flags []string) (library.Details, error) {
	for _, f := range flags {
		if f == "--clear-rating" {
			d.Rating = nil
		}
	}
	if v, ok := flagValue(flags, "status"); ok {
		st, err := library.ParseStatus(v)
		if err != nil {
			return d, err
		}
		d.Status = st
	}
	if v, ok := flagValue(flags, "rating"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return d, fmt.Errorf("%w: rating %q is not a number", library.ErrInvalidArg, v)
		}
		d.Rating = &r
	}
	if v, ok := flagValue(flags, "comment"); ok {
		d.Comment = v
	}
	return d, nil
}

func formatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64) + "/10"
}
