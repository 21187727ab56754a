package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// TopApplications is how many applications Render lists.
const TopApplications = 10

// Render writes a human-readable summary to w.
func Render(w io.Writer, s Summary) error {
	var sb strings.Builder

	sb.WriteString("=== TRAFFIC SUMMARY ===\n")
	fmt.Fprintf(&sb, "Total Packets Captured: %d\n", s.Total)
	if s.Total == 0 {
		sb.WriteString("No packets were captured during this session.\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	fmt.Fprintf(&sb, "Unique Source IPs: %d\n", s.UniqueSourceIPs)
	fmt.Fprintf(&sb, "Unique Destination IPs: %d\n", s.UniqueDestinationIPs)

	section(&sb, "Protocol Distribution", s.Protocols, true)
	section(&sb, "Application Distribution", s.Applications.Top(TopApplications), true)
	section(&sb, "Direction Distribution", s.Directions, true)
	section(&sb, "Traffic Categories", s.Categories, true)
	section(&sb, "Security Levels", s.SecurityLevels, true)
	section(&sb, "Top Source IPs", s.TopSourceIPs, false)
	section(&sb, "Top Destination IPs", s.TopDestinationIPs, false)

	sb.WriteString("\nPerformance Metrics:\n")
	if s.Elapsed > 0 {
		fmt.Fprintf(&sb, "  Duration: %s\n", s.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(&sb, "  Packets per Second: %.2f\n", s.PacketsPerSecond)
	}
	fmt.Fprintf(&sb, "  Average Packet Size: %.2f bytes\n", s.AveragePacketLength)
	fmt.Fprintf(&sb, "  Total Bytes: %d\n", s.TotalBytes)

	_, err := io.WriteString(w, sb.String())
	return err
}

func section(sb *strings.Builder, title string, d Distribution, withPercent bool) {
	if len(d) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, e := range d {
		if withPercent {
			fmt.Fprintf(sb, "  %s\n", e)
		} else {
			fmt.Fprintf(sb, "  %s: %d\n", e.Name, e.Count)
		}
	}
}
