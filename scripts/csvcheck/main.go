package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"Go2NetScope/internal/export"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/csvcheck/main.go <path_to_csv_file>")
		os.Exit(1)
	}
	path := os.Args[1]

	vr, err := export.ValidateFile(path)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	fmt.Printf("CSV Validation Report for: %s\n", path)
	fmt.Printf("UTF-8 BOM: %v\n", vr.HasBOM)
	fmt.Printf("Layout: %s (%d columns)\n", vr.Layout, len(vr.Header))
	fmt.Printf("Total Rows: %d\n", vr.TotalRows)
	fmt.Printf("Valid Rows: %d\n", vr.ValidRows)
	fmt.Printf("Localhost Rows: %d\n", vr.LocalhostRows)

	protocols := make([]string, 0, len(vr.Protocols))
	for p := range vr.Protocols {
		protocols = append(protocols, p)
	}
	sort.Strings(protocols)
	fmt.Println("Protocols:")
	for _, p := range protocols {
		fmt.Printf("  %s: %d\n", p, vr.Protocols[p])
	}

	if vr.OK() {
		fmt.Println("\nThe file is ready for import.")
		return
	}
	fmt.Printf("\n%d issues found:\n", len(vr.Issues))
	for _, issue := range vr.Issues {
		fmt.Println("  " + issue)
	}
	os.Exit(1)
}
