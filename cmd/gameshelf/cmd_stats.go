package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ryanm101/gameshelf/internal/library"
	"github.com/ryanm101/gameshelf/internal/stats"
)

func handleStatsCommand(ctx context.Context) int {
	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		PrintError("Error: failed to open library: %v\n", err)
		return 1
	}
	defer closeStore()

	summary := stats.Compute(store.Entries())
	if outputCfg.JSON {
		PrintResult(summary)
		return 0
	}
	if summary.Total == 0 {
		PrintInfo("Add games to your library to see stats!\n")
		return 0
	}

	fmt.Printf("Games:       %d\n", summary.Total)
	fmt.Printf("Completion:  %.0f%%\n", summary.CompletionRate*100)
	fmt.Println()

	rows := [][]string{}
	for _, st := range library.Statuses {
		rows = append(rows, []string{
			string(st),
			strconv.Itoa(summary.ByStatus[st]),
			avgMeta(summary.AvgMetacritic[st]),
		})
	}
	PrintTable([]string{"STATUS", "GAMES", "AVG META"}, rows)
	fmt.Println()

	rows = [][]string{}
	for i, label := range stats.RatingLabels {
		rows = append(rows, []string{label, strconv.Itoa(summary.Ratings[i])})
	}
	PrintTable([]string{"RATING", "GAMES"}, rows)

	printCounts("PLATFORM", summary.Platforms)
	printCounts("GENRE", summary.Genres)
	printCounts("DECADE", summary.Decades)
	return 0
}

func printCounts(header string, counts []stats.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Println()
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.Count)})
	}
	PrintTable([]string{header, "GAMES"}, rows)
}

func avgMeta(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
