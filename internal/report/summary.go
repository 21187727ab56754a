// Package report computes frequency distributions and rate statistics over a
// collection of packet records.
package report

import (
	"time"

	"Go2NetScope/internal/model"
)

// DefaultTopN is the length of the top-IP lists in a Summary.
const DefaultTopN = 5

// Summary aggregates a record collection.
type Summary struct {
	Total                int           `json:"total"`
	UniqueSourceIPs      int           `json:"unique_source_ips"`
	UniqueDestinationIPs int           `json:"unique_destination_ips"`
	Protocols            Distribution  `json:"protocols"`
	Applications         Distribution  `json:"applications"`
	Directions           Distribution  `json:"directions"`
	Categories           Distribution  `json:"categories"`
	SecurityLevels       Distribution  `json:"security_levels"`
	TopSourceIPs         Distribution  `json:"top_source_ips"`
	TopDestinationIPs    Distribution  `json:"top_destination_ips"`
	TotalBytes           int64         `json:"total_bytes"`
	AveragePacketLength  float64       `json:"average_packet_length"`
	PacketsPerSecond     float64       `json:"packets_per_second"`
	Elapsed              time.Duration `json:"elapsed"`
}

// Summarize walks records once and builds the Summary. elapsed is the capture
// duration used for the packet rate; a non-positive elapsed yields a zero rate.
func Summarize(records []model.PacketRecord, elapsed time.Duration) Summary {
	protocols := NewCounter()
	applications := NewCounter()
	directions := NewCounter()
	categories := NewCounter()
	security := NewCounter()
	sources := NewCounter()
	destinations := NewCounter()

	var totalBytes int64
	for i := range records {
		r := &records[i]
		protocols.Add(r.Protocol)
		applications.Add(r.ApplicationGuess)
		directions.Add(r.Direction)
		categories.Add(r.TrafficCategory)
		security.Add(r.SecurityLevel)
		sources.Add(r.SourceIP)
		destinations.Add(r.DestinationIP)
		totalBytes += int64(r.PacketLength)
	}

	return Summary{
		Total:                len(records),
		UniqueSourceIPs:      sources.Len(),
		UniqueDestinationIPs: destinations.Len(),
		Protocols:            protocols.Distribution(),
		Applications:         applications.Distribution(),
		Directions:           directions.Distribution(),
		Categories:           categories.Distribution(),
		SecurityLevels:       security.Distribution(),
		TopSourceIPs:         sources.Distribution().Top(DefaultTopN),
		TopDestinationIPs:    destinations.Distribution().Top(DefaultTopN),
		TotalBytes:           totalBytes,
		AveragePacketLength:  AveragePacketLength(records),
		PacketsPerSecond:     PacketsPerSecond(len(records), elapsed),
		Elapsed:              elapsed,
	}
}

// PacketsPerSecond returns count divided by elapsed seconds, or 0 when elapsed
// is not positive.
func PacketsPerSecond(count int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

// AveragePacketLength returns the mean packet length, or 0 for no records.
func AveragePacketLength(records []model.PacketRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum int64
	for i := range records {
		sum += int64(records[i].PacketLength)
	}
	return float64(sum) / float64(len(records))
}

// Span returns the time between the earliest and latest record.
func Span(records []model.PacketRecord) time.Duration {
	if len(records) == 0 {
		return 0
	}
	first, last := records[0].Timestamp, records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
	}
	return last.Sub(first)
}
