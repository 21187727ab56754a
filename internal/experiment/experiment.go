// Package experiment records the host and traffic details of a reproducible
// experiment run and writes them to a log file.
package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"Go2NetScope/internal/report"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// LogDir is where experiment logs are written by default.
	LogDir = "logs"

	idLayout  = "20060102_150405"
	logLayout = "2006-01-02 15:04:05.000"
)

// HostDetails describes the machine an experiment ran on.
type HostDetails struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	Architecture    string
	LogicalCPUs     int
	CPUPercent      float64
	TotalMemory     uint64
	FreeMemory      uint64
	UsedMemory      uint64
	MemoryPercent   float64
	GoVersion       string
}

// CollectHost gathers host details. Fields that cannot be read are left
// empty and the first error is returned alongside the partial result.
func CollectHost(ctx context.Context) (HostDetails, error) {
	d := HostDetails{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
	}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	info, err := host.InfoWithContext(ctx)
	keep(err)
	if err == nil {
		d.Hostname = info.Hostname
		d.Platform = info.Platform
		d.PlatformVersion = info.PlatformVersion
		if info.KernelArch != "" {
			d.Architecture = info.KernelArch
		}
	}

	counts, err := cpu.CountsWithContext(ctx, true)
	keep(err)
	d.LogicalCPUs = counts

	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	keep(err)
	if len(percents) > 0 {
		d.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	keep(err)
	if err == nil {
		d.TotalMemory = vm.Total
		d.FreeMemory = vm.Available
		d.UsedMemory = vm.Used
		d.MemoryPercent = vm.UsedPercent
	}

	if firstErr != nil {
		return d, fmt.Errorf("failed to collect host details: %w", firstErr)
	}
	return d, nil
}

// Experiment is one run: when it happened, where, and what traffic it saw.
type Experiment struct {
	ID      string
	Host    HostDetails
	Start   time.Time
	End     time.Time
	Summary report.Summary
}

// New starts an experiment at start, deriving its ID from the start time.
func New(start time.Time, host HostDetails) *Experiment {
	return &Experiment{ID: "EXP_" + start.Format(idLayout), Host: host, Start: start}
}

// Finish records the end time and the traffic summary.
func (e *Experiment) Finish(end time.Time, summary report.Summary) {
	e.End = end
	e.Summary = summary
}

// Duration is the wall-clock time between Start and End.
func (e *Experiment) Duration() time.Duration {
	if e.End.Before(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

// LogPath returns the log file path for the experiment under dir.
func (e *Experiment) LogPath(dir string) string {
	return filepath.Join(dir, "experiment_"+e.ID+".log")
}

// WriteHost writes the system details block.
func (e *Experiment) WriteHost(w io.Writer) error {
	var sb strings.Builder
	h := e.Host
	sb.WriteString("=== SYSTEM DETAILS ===\n")
	fmt.Fprintf(&sb, "Host Name: %s\n", h.Hostname)
	fmt.Fprintf(&sb, "OS Name: %s\n", h.OS)
	fmt.Fprintf(&sb, "OS Version: %s %s\n", h.Platform, h.PlatformVersion)
	fmt.Fprintf(&sb, "OS Architecture: %s\n", h.Architecture)
	fmt.Fprintf(&sb, "Total Memory: %s\n", FormatBytes(h.TotalMemory))
	fmt.Fprintf(&sb, "Free Memory: %s\n", FormatBytes(h.FreeMemory))
	fmt.Fprintf(&sb, "Used Memory: %s (%.2f%%)\n", FormatBytes(h.UsedMemory), h.MemoryPercent)
	fmt.Fprintf(&sb, "Available Processors: %d\n", h.LogicalCPUs)
	fmt.Fprintf(&sb, "CPU Usage: %.2f%%\n", h.CPUPercent)
	fmt.Fprintf(&sb, "Go Version: %s\n", h.GoVersion)
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteLog writes the full experiment log.
func (e *Experiment) WriteLog(w io.Writer, generated time.Time) error {
	if _, err := fmt.Fprintf(w, "=== EXPERIMENT LOG ===\nExperiment ID: %s\nGenerated: %s\n\n", e.ID, generated.Format(logLayout)); err != nil {
		return err
	}
	if err := e.WriteHost(w); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("\n=== EXPERIMENT DETAILS ===\n")
	fmt.Fprintf(&sb, "Start Time: %s\n", e.Start.Format(logLayout))
	fmt.Fprintf(&sb, "End Time: %s\n", e.End.Format(logLayout))
	fmt.Fprintf(&sb, "Duration: %s\n\n", FormatDuration(e.Duration()))
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	return report.Render(w, e.Summary)
}

// SaveLog writes the log to dir, creating it if needed, and returns the path.
func (e *Experiment) SaveLog(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := e.LogPath(dir)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment log: %w", err)
	}
	defer file.Close()

	if err := e.WriteLog(file, time.Now()); err != nil {
		return "", fmt.Errorf("failed to write experiment log: %w", err)
	}
	return path, nil
}

// FormatBytes renders b with a binary unit, to two decimals above bytes.
func FormatBytes(b uint64) string {
	const unit = 1024
	switch {
	case b < unit:
		return fmt.Sprintf("%d B", b)
	case b < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(b)/unit)
	case b < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(b)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(b)/(unit*unit*unit))
	}
}

// FormatDuration renders d in hours, minutes and seconds, dropping leading
// zero units.
func FormatDuration(d time.Duration) string {
	s := int64(d / time.Second)
	h, m := s/3600, (s%3600)/60
	s %= 60
	switch {
	case h > 0:
		return fmt.Sprintf("%d hours, %d minutes, %d seconds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%d minutes, %d seconds", m, s)
	default:
		return fmt.Sprintf("%d seconds", s)
	}
}
