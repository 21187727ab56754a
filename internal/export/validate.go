package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ValidationReport summarizes how well an exported file will import into a
// spreadsheet or BI tool.
type ValidationReport struct {
	HasBOM        bool
	Layout        Layout
	Header        []string
	TotalRows     int
	ValidRows     int
	LocalhostRows int
	Protocols     map[string]int
	Issues        []string
}

// OK reports whether every data row passed validation.
func (r *ValidationReport) OK() bool {
	return len(r.Issues) == 0
}

// ValidateFile opens path and validates it.
func ValidateFile(path string) (*ValidationReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file '%s': %w", path, err)
	}
	defer file.Close()
	return Validate(file)
}

// Validate reads an export and checks the header, column counts, timestamps,
// addresses, ports and packet lengths of every row. Structural problems with
// the header are returned as an error; row problems are collected as issues.
func Validate(r io.Reader) (*ValidationReport, error) {
	br := bufio.NewReader(r)
	report := &ValidationReport{Protocols: make(map[string]int)}

	if lead, err := br.Peek(len(BOM)); err == nil && string(lead) == BOM {
		report.HasBOM = true
		br.Discard(len(BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return report, fmt.Errorf("CSV file is empty")
		}
		return report, fmt.Errorf("failed to read CSV header: %w", err)
	}
	report.Header = header

	switch strings.Join(header, ",") {
	case Header:
		report.Layout = LayoutAnalytics
	case BasicHeader:
		report.Layout = LayoutBasic
	default:
		return report, fmt.Errorf("header does not match a known layout: %v", header)
	}

	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.TotalRows++
			report.Issues = append(report.Issues, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		report.TotalRows++

		if issue := validateRow(row, len(header)); issue != "" {
			report.Issues = append(report.Issues, fmt.Sprintf("Row %d: %s", rowNum, issue))
			continue
		}
		report.ValidRows++

		if isLocalhost(row[1]) || isLocalhost(row[2]) {
			report.LocalhostRows++
		}
		report.Protocols[row[5]]++
	}

	return report, nil
}

func validateRow(row []string, columns int) string {
	if len(row) != columns {
		return fmt.Sprintf("column count mismatch (%d vs %d)", len(row), columns)
	}
	if _, err := time.Parse(TimestampLayout, row[0]); err != nil {
		if _, err := time.Parse(time.DateTime, row[0]); err != nil {
			return fmt.Sprintf("invalid timestamp format: %s", row[0])
		}
	}
	if !validIP(row[1]) {
		return fmt.Sprintf("invalid source IP: %s", row[1])
	}
	if !validIP(row[2]) {
		return fmt.Sprintf("invalid destination IP: %s", row[2])
	}
	if !validPortField(row[3]) {
		return fmt.Sprintf("invalid source port: %s", row[3])
	}
	if !validPortField(row[4]) {
		return fmt.Sprintf("invalid destination port: %s", row[4])
	}
	if _, err := strconv.Atoi(row[6]); err != nil {
		return fmt.Sprintf("invalid packet length: %s", row[6])
	}
	return ""
}

func validIP(s string) bool {
	return s == "" || s == "Unknown" || net.ParseIP(s) != nil
}

func validPortField(s string) bool {
	if s == "" || s == "-1" {
		return true
	}
	p, err := strconv.Atoi(s)
	return err == nil && p >= 0 && p <= 65535
}

func isLocalhost(ip string) bool {
	return strings.Contains(ip, "127.0.0.1") || strings.Contains(ip, "localhost")
}
