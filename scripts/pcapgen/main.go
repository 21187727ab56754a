package main

import (
	"flag"
	"log"
	"os"

	"Go2NetScope/internal/model"
	"Go2NetScope/internal/synthetic"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of random packets to generate")
	mode := flag.String("mode", "random", "Traffic to generate: 'random' TCP/UDP between random hosts, or 'localhost' for the simulated workstation mix")
	seed := flag.Uint64("seed", 0, "Seed for reproducible output, 0 for random")
	flag.Parse()

	gen := synthetic.NewGenerator(nil)
	if *seed != 0 {
		gen = synthetic.NewSeededGenerator(*seed)
	}

	var records []model.PacketRecord
	switch *mode {
	case "random":
		records = gen.RandomRecords(*packetCount)
	case "localhost":
		records = gen.LocalhostTraffic()
	default:
		log.Fatalf("Unknown mode: %s", *mode)
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	log.Printf("Generating %d packets into %s...", len(records), *outputFile)
	written, err := gen.WritePcap(f, records)
	if err != nil {
		log.Fatalf("Failed to write packets: %v", err)
	}
	log.Printf("Successfully generated %d packets in %s", written, *outputFile)
}
