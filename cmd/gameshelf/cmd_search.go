package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/library"
	"github.com/ryanm101/gameshelf/internal/search"
)

func handleSearchCommand(ctx context.Context, args []string) int {
	positional, flags := splitArgs(args)
	text := strings.Join(positional, " ")

	pages := 1
	if v, ok := flagValue(flags, "pages"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			PrintError("Error: --pages must be a positive number\n")
			return 1
		}
		pages = n
	}

	var opts []search.Option
	if g, ok := flagValue(flags, "genre"); ok {
		opts = append(opts, search.WithGenre(g))
	}
	if s, ok := flagValue(flags, "sort"); ok {
		if s != "" && !catalog.IsSortKey(s) {
			PrintError("Error: unknown sort key %q (see 'gameshelf sorts')\n", s)
			return 1
		}
		opts = append(opts, search.WithSort(s))
	}

	client, err := newCatalogClient(ctx)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	opts = append(opts, search.WithFilter(newContentFilter()))
	session := search.New(client, opts...)

	if text == "" {
		session.Start(ctx)
	} else {
		session.SubmitQuery(ctx, text)
	}
	for i := 1; i < pages && session.Snapshot().HasMore(); i++ {
		session.LoadMore(ctx)
	}

	snap := session.Snapshot()
	if snap.State == search.Failed {
		PrintError("Error: %v\n", snap.Err)
		if len(snap.Results) == 0 {
			return 1
		}
	}

	statusOf := func(int) string { return "" }
	if store, closeStore, err := openLibrary(ctx); err == nil {
		defer closeStore()
		statusOf = func(id int) string {
			if e, ok := store.StatusOf(id); ok {
				return string(e.Status)
			}
			return ""
		}
	}

	if outputCfg.JSON {
		PrintResult(struct {
			Query   string         `json:"query"`
			Genre   string         `json:"genre,omitempty"`
			Sort    string         `json:"sort"`
			Pages   int            `json:"pages"`
			HasMore bool           `json:"has_more"`
			Results []catalog.Item `json:"results"`
		}{snap.Query, snap.Genre, snap.Sort, snap.Page, snap.HasMore(), snap.Results})
		return 0
	}

	if len(snap.Results) == 0 {
		PrintInfo("No games found.\n")
		return 0
	}

	rows := make([][]string, 0, len(snap.Results))
	for _, g := range snap.Results {
		rows = append(rows, []string{
			strconv.Itoa(g.ID),
			truncate(g.Name, 48),
			g.Released,
			metacritic(g),
			statusOf(g.ID),
		})
	}
	PrintTable([]string{"ID", "NAME", "RELEASED", "META", "LIBRARY"}, rows)

	more := "end of results"
	if snap.HasMore() {
		more = "more available, use --pages"
	}
	PrintInfo("\n%d games, %d page(s), %s\n", len(snap.Results), snap.Page, more)
	return 0
}

func handleShowCommand(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: gameshelf show <game_id>")
		return 1
	}
	id, err := parseGameID(args[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}

	client, err := newCatalogClient(ctx)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	game, err := client.GetGame(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		return 1
	}
	if hidden(*game) {
		PrintError("Error: game %d is hidden by the content filter\n", id)
		return 1
	}

	if outputCfg.JSON {
		PrintResult(game)
		return 0
	}
	printGame(*game)
	return 0
}

func handleGenresCommand() int {
	rows := [][]string{}
	for _, g := range catalog.Genres() {
		rows = append(rows, []string{g.ID, g.Name})
	}
	PrintTable([]string{"ID", "NAME"}, rows)
	return 0
}

func handleSortsCommand() int {
	rows := [][]string{}
	for _, s := range catalog.SortKeys() {
		rows = append(rows, []string{s.ID, s.Name})
	}
	PrintTable([]string{"KEY", "NAME"}, rows)
	return 0
}

// hidden reports whether the content filter removes g.
func hidden(g catalog.Item) bool {
	return len(newContentFilter()([]catalog.Item{g})) == 0
}

func printGame(g catalog.Item) {
	fmt.Printf("%s (%d)\n", g.Name, g.ID)
	if g.Released != "" {
		fmt.Printf("  Released:   %s\n", g.Released)
	}
	fmt.Printf("  Metacritic: %s\n", metacritic(g))
	if g.Rating > 0 {
		fmt.Printf("  Rating:     %.2f / 5\n", g.Rating)
	}
	if names := labelNames(g.Genres); names != "" {
		fmt.Printf("  Genres:     %s\n", names)
	}
	var platforms []catalog.Label
	for _, p := range g.Platforms {
		platforms = append(platforms, p.Platform)
	}
	if names := labelNames(platforms); names != "" {
		fmt.Printf("  Platforms:  %s\n", names)
	}
	fmt.Printf("  Cover:      %s\n", g.CoverURL())
}

func labelNames(labels []catalog.Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return strings.Join(names, ", ")
}

func metacritic(g catalog.Item) string {
	if g.Metacritic == nil {
		return "-"
	}
	return strconv.Itoa(*g.Metacritic)
}

func parseGameID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid game id %q", library.ErrInvalidArg, s)
	}
	return id, nil
}
