package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
)

// FilenamePrefix starts every generated export name.
const FilenamePrefix = "packet_capture"

// GenerateFilename builds packet_capture[_tag]_yyyyMMdd_HHmmss. The tag is
// lowercased; an empty tag is left out.
func GenerateFilename(tag string, t time.Time) string {
	stamp := t.Format("20060102_150405")
	if tag == "" {
		return FilenamePrefix + "_" + stamp
	}
	return fmt.Sprintf("%s_%s_%s", FilenamePrefix, strings.ToLower(tag), stamp)
}

// ListCSVFiles returns the names of the .csv files (any case) in the output
// directory, sorted. A missing directory yields an empty list.
func (e *Exporter) ListCSVFiles() ([]string, error) {
	entries, err := os.ReadDir(e.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return []string{}, fmt.Errorf("failed to list output directory '%s': %w", e.Dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
