package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"Go2NetScope/internal/app"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/experiment"
	"Go2NetScope/internal/synthetic"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file (defaults are used when empty).")
	logDir := flag.String("logs", experiment.LogDir, "Directory for the experiment log.")
	seed := flag.Uint64("seed", 0, "Seed for reproducible traffic, 0 for a random run.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logr, err := app.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// 1. Initialize and record the host
	ctx := context.Background()
	host, err := experiment.CollectHost(ctx)
	if err != nil {
		logr.Warnf("Host details incomplete: %v", err)
	}
	exp := experiment.New(time.Now(), host)
	logr.WithFields(map[string]any{"experiment": exp.ID, "host": host.Hostname}).Info("Experiment started")
	if err := exp.WriteHost(os.Stdout); err != nil {
		log.Fatalf("Failed to print host details: %v", err)
	}

	// 2. Simulate the capture
	gen := synthetic.NewGenerator(nil)
	if *seed != 0 {
		gen = synthetic.NewSeededGenerator(*seed)
	}
	s := app.NewSession(cfg, logr)
	for _, rec := range gen.ExperimentMix() {
		s.Add(rec)
	}
	logr.Infof("Packet capture simulation complete, %d packets", s.Len())

	// 3. Summarize, export and save the log
	outcome, err := app.Finalize(ctx, cfg, s, synthetic.Window, nil, os.Stdout, logr)
	if err != nil {
		log.Fatalf("Failed to finalize experiment: %v", err)
	}
	exp.Finish(time.Now(), outcome.Summary)

	path, err := exp.SaveLog(*logDir)
	if err != nil {
		log.Fatalf("Failed to save experiment log: %v", err)
	}

	fmt.Println("\n=== EXPERIMENT COMPLETE ===")
	fmt.Println("Experiment ID: " + exp.ID)
	fmt.Println("Log file: " + path)
	if outcome.Export != nil {
		fmt.Println("CSV file: " + outcome.Export.Path)
	}
}
