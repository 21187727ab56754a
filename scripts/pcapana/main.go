package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"Go2NetScope/internal/capture"
	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/export"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

func main() {
	limit := flag.Int("n", 5, "Number of packets to print")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}

	handle, err := pcap.OpenOffline(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer handle.Close()

	locals, _ := direction.DiscoverLocal()
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	fmt.Println(export.BasicHeader)
	i := 0
	for packet := range packetSource.Packets() {
		obs, err := capture.FromPacket(packet)
		if err != nil {
			fmt.Println("Parse error:", err)
			continue
		}
		rec := obs.Record()
		direction.Apply(rec, locals)
		fmt.Println(export.FormatRecord(rec, export.LayoutBasic, false))

		i++
		if i >= *limit {
			break
		}
	}
}
