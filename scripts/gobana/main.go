package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"Go2NetScope/internal/export"
	"Go2NetScope/internal/report"
	"Go2NetScope/internal/snapshot"
)

func main() {
	limit := flag.Int("n", 10, "Number of records to print")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go [-n count] <session_snapshot_dir>")
		os.Exit(1)
	}

	records, err := snapshot.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load snapshots: %v", err)
	}

	fmt.Printf("Loaded %d records\n\n", len(records))
	fmt.Println(export.Header)
	for i := 0; i < len(records) && i < *limit; i++ {
		fmt.Println(export.FormatRecord(&records[i], export.LayoutAnalytics, false))
	}
	fmt.Println()

	if err := report.Render(os.Stdout, report.Summarize(records, report.Span(records))); err != nil {
		log.Fatalf("Failed to render summary: %v", err)
	}
}
