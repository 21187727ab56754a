package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Go2NetScope/internal/app"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/export"
	"Go2NetScope/internal/report"
	"Go2NetScope/internal/storage/redisstore"
	"Go2NetScope/pkg/pcap"
)

func main() {
	// 1. Parse flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	validate := flag.Bool("validate", false, "Validate the exported CSV after writing it.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [path_to_pcap_file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	pcapFilePath := cfg.Capture.PcapFile
	if flag.NArg() > 0 {
		pcapFilePath = flag.Arg(0)
	}
	if pcapFilePath == "" {
		flag.Usage()
		os.Exit(1)
	}
	// Offline files are read to the end.
	cfg.Capture.Duration = ""

	logr, err := app.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// 3. Initialize modules
	pcapReader, err := pcap.NewReader(pcapFilePath, logr)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()

	s := app.NewSession(cfg, logr)

	var store redisstore.Store
	if cfg.Redis.Enabled {
		rs := redisstore.NewRedisStore(cfg.Redis)
		defer rs.Close()
		store = rs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Read every packet through the session
	if err := app.RunCapture(ctx, cfg, s, pcapReader, logr); err != nil {
		log.Fatalf("Capture failed: %v", err)
	}

	// 5. Export and summarize over the time the file covers
	outcome, err := app.Finalize(ctx, cfg, s, report.Span(s.Records()), store, os.Stdout, logr)
	if err != nil {
		logr.Errorf("Failed to finalize session: %v", err)
	}

	if *validate && outcome != nil && outcome.Export != nil {
		vr, err := export.ValidateFile(outcome.Export.Path)
		if err != nil {
			log.Fatalf("Failed to validate export: %v", err)
		}
		fmt.Printf("Validation: %d/%d valid rows, %d issues\n", vr.ValidRows, vr.TotalRows, len(vr.Issues))
		for _, issue := range vr.Issues {
			fmt.Println("  " + issue)
		}
	}
	logr.Info("Shutdown complete.")
}
