package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetScope/internal/api"
	"Go2NetScope/internal/app"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/export"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/probe"
	"Go2NetScope/internal/probe/persistent"
	"Go2NetScope/internal/storage/redisstore"
	"Go2NetScope/pkg/pcap"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "capture", "Operating mode: 'capture' to capture live traffic, 'sub' to subscribe and print records.")
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	iface := flag.String("iface", "", "Interface to capture packets from (overrides capture.interface).")
	duration := flag.Duration("duration", -1, "Capture duration, 0 to capture until interrupted (overrides capture.duration).")
	list := flag.Bool("list", false, "List capture interfaces and exit.")
	serve := flag.Bool("serve", false, "Serve the API on the live session while capturing.")
	flag.Parse()

	if *list {
		listInterfaces()
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *iface != "" {
		cfg.Capture.Interface = *iface
	}
	if *duration >= 0 {
		cfg.Capture.Duration = duration.String()
	}

	logr, err := app.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Mode Dispatch ---
	switch *mode {
	case "capture":
		runCapture(ctx, cfg, *serve, logr)
	case "sub":
		runSubscriber(ctx, cfg, logr)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runCapture captures live traffic into a session, then exports and
// summarizes it.
func runCapture(ctx context.Context, cfg *config.Config, serve bool, logr logger.Logger) {
	if cfg.Capture.Interface == "" {
		log.Println("Error: -iface flag or capture.interface is required for capture mode.")
		flag.Usage()
		os.Exit(1)
	}

	reader, err := pcap.NewLiveReader(cfg.Capture.Interface, pcap.LiveOptions{
		SnapshotLen: cfg.Capture.SnapshotLen,
		Promiscuous: cfg.Capture.Promiscuous,
		BPFFilter:   cfg.Capture.BPFFilter,
		Timeout:     500 * time.Millisecond,
	}, logr)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", cfg.Capture.Interface, err)
	}
	defer reader.Close()

	var persist *persistent.Worker
	if cfg.Capture.PersistDir != "" {
		persist, err = persistent.NewWorker(cfg.Capture.PersistDir, reader.LinkType(), cfg.Capture.ChannelSize, logr)
		if err != nil {
			log.Fatalf("Failed to start persistent worker: %v", err)
		}
		reader.Tee(persist)
	}

	s := app.NewSession(cfg, logr)

	var store redisstore.Store
	if cfg.Redis.Enabled {
		rs := redisstore.NewRedisStore(cfg.Redis)
		defer rs.Close()
		store = rs
	}

	apiDone := make(chan struct{})
	apiCtx, stopAPI := context.WithCancel(context.Background())
	if serve {
		h := &api.APIHandler{
			Source:    s,
			Exporter:  export.NewExporter(cfg.Export.OutputDir, logr),
			Summaries: store,
			Log:       logr,
		}
		go func() {
			defer close(apiDone)
			if err := api.Serve(apiCtx, cfg.API.ListenAddr, api.NewRouter(h), logr); err != nil {
				logr.Error(err)
			}
		}()
	} else {
		close(apiDone)
	}

	if err := app.RunCapture(ctx, cfg, s, reader, logr); err != nil {
		log.Fatalf("Capture failed: %v", err)
	}
	if persist != nil {
		if err := persist.Stop(); err != nil {
			logr.Error(err)
		}
	}

	if _, err := app.Finalize(context.Background(), cfg, s, s.Elapsed(), store, os.Stdout, logr); err != nil {
		logr.Errorf("Failed to finalize session: %v", err)
	}

	if serve {
		logr.Infof("Capture finished, API still serving session %s. Press Ctrl+C to exit.", s.ID)
		<-ctx.Done()
	}
	stopAPI()
	<-apiDone
}

// runSubscriber prints every record published on the configured subject.
func runSubscriber(ctx context.Context, cfg *config.Config, logr logger.Logger) {
	logr.Info("Starting ns-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg.NATS, logr)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(rec model.PacketRecord) {
		fmt.Println(export.FormatRecord(&rec, export.LayoutAnalytics, false))
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	<-ctx.Done()
	logr.Info("Shutdown signal received, cleaning up...")
}

func listInterfaces() {
	ifaces, err := pcap.ListInterfaces()
	if err != nil {
		log.Fatalf("Failed to list interfaces: %v", err)
	}
	for _, i := range ifaces {
		fmt.Printf("%-20s %-40s %v\n", i.Name, i.Description, i.Addresses)
	}
}
