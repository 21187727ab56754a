// Package export writes packet records to CSV files.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
)

// DefaultDir is the directory exports land in unless configured otherwise.
const DefaultDir = "output"

var (
	// ErrNoRecords is returned when there is nothing to export.
	ErrNoRecords = errors.New("no packet records to export")
	// ErrNoMatch is returned when a filter leaves nothing to export.
	ErrNoMatch = errors.New("no packet records match the filter")
)

// Options selects the CSV variant.
type Options struct {
	IncludeHeader bool
	// PowerBI prefixes the file with a UTF-8 BOM and renders sentinel ports
	// as empty fields instead of -1.
	PowerBI bool
	Layout  Layout
}

// DefaultOptions returns the basic variant: analytics columns with a header.
func DefaultOptions() Options {
	return Options{IncludeHeader: true, Layout: LayoutAnalytics}
}

// PowerBIOptions returns the spreadsheet-optimized variant.
func PowerBIOptions() Options {
	return Options{IncludeHeader: true, PowerBI: true, Layout: LayoutAnalytics}
}

// Result describes a successful export.
type Result struct {
	Path    string
	Records int
	Message string
}

// Exporter writes CSV files into Dir.
type Exporter struct {
	Dir string
	log logger.Logger
	now func() time.Time
}

// NewExporter creates an exporter writing into dir (DefaultDir when empty).
func NewExporter(dir string, log logger.Logger) *Exporter {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = logger.Default()
	}
	return &Exporter{Dir: dir, log: log, now: time.Now}
}

// Export writes records to Dir/filename.csv. The ".csv" extension is added
// unless filename already has it; an empty filename is generated from the
// current time. Nothing is written when records is empty or the directory
// cannot be created; a file this call created that fails mid-write is removed.
func (e *Exporter) Export(records []model.PacketRecord, filename string, opts Options) (*Result, error) {
	if len(records) == 0 {
		e.log.Info(ErrNoRecords.Error())
		return nil, ErrNoRecords
	}

	if err := e.ensureDir(); err != nil {
		e.log.Error(err)
		return nil, err
	}

	if filename == "" {
		filename = GenerateFilename("", e.now())
	}
	path := filepath.Join(e.Dir, withExtension(filename))

	if created, err := writeFile(path, records, opts); err != nil {
		if created {
			os.Remove(path)
		}
		err = fmt.Errorf("failed to write CSV file '%s': %w", path, err)
		e.log.Error(err)
		return nil, err
	}

	msg := fmt.Sprintf("Successfully exported %d packet records to %s", len(records), path)
	if opts.PowerBI {
		msg += " (Power BI optimized)"
	}
	e.log.WithFields(map[string]any{
		"path":     path,
		"records":  len(records),
		"layout":   opts.Layout.String(),
		"power_bi": opts.PowerBI,
	}).Info(msg)

	return &Result{Path: path, Records: len(records), Message: msg}, nil
}

// ExportTimestamped exports under a generated packet_capture_<time> name.
func (e *Exporter) ExportTimestamped(records []model.PacketRecord, opts Options) (*Result, error) {
	return e.Export(records, GenerateFilename("", e.now()), opts)
}

// ExportByProtocol exports the records whose protocol equals protocol,
// ignoring case, under a generated name tagged with the protocol.
func (e *Exporter) ExportByProtocol(records []model.PacketRecord, protocol string, opts Options) (*Result, error) {
	return e.exportFiltered(records, protocol, opts, func(r *model.PacketRecord) string { return r.Protocol })
}

// ExportByDirection exports the records whose direction equals direction,
// ignoring case, under a generated name tagged with the direction.
func (e *Exporter) ExportByDirection(records []model.PacketRecord, direction string, opts Options) (*Result, error) {
	return e.exportFiltered(records, direction, opts, func(r *model.PacketRecord) string { return r.Direction })
}

func (e *Exporter) exportFiltered(records []model.PacketRecord, value string, opts Options, field func(*model.PacketRecord) string) (*Result, error) {
	if len(records) == 0 {
		e.log.Info(ErrNoRecords.Error())
		return nil, ErrNoRecords
	}

	filtered := Filter(records, func(r *model.PacketRecord) bool {
		return strings.EqualFold(field(r), value)
	})
	if len(filtered) == 0 {
		err := fmt.Errorf("%w: %s", ErrNoMatch, value)
		e.log.Info(err.Error())
		return nil, err
	}

	return e.Export(filtered, GenerateFilename(value, e.now()), opts)
}

// Filter returns the records for which keep returns true, in order.
func Filter(records []model.PacketRecord, keep func(*model.PacketRecord) bool) []model.PacketRecord {
	var out []model.PacketRecord
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func (e *Exporter) ensureDir() error {
	info, err := os.Stat(e.Dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("failed to create output directory '%s': not a directory", e.Dir)
		}
		return nil
	}
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", e.Dir, err)
	}
	e.log.Infof("Created output directory: %s", e.Dir)
	return nil
}

// writeFile reports created=true once path has been truncated by this call,
// so callers never remove a file they failed to open.
func writeFile(path string, records []model.PacketRecord, opts Options) (created bool, err error) {
	file, err := os.Create(path)
	if err != nil {
		return false, err
	}
	created = true
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	if opts.PowerBI {
		if _, err := w.WriteString(BOM); err != nil {
			return created, err
		}
	}
	if opts.IncludeHeader {
		if _, err := w.WriteString(opts.Layout.Header() + "\n"); err != nil {
			return created, err
		}
	}
	for i := range records {
		line := FormatRecord(&records[i], opts.Layout, opts.PowerBI)
		if _, err := w.WriteString(line + "\n"); err != nil {
			return created, err
		}
	}
	return created, w.Flush()
}

func withExtension(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".csv") {
		return name
	}
	return name + ".csv"
}
