package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile_PowerBIExport(t *testing.T) {
	e := newTestExporter(t)
	records := sampleRecords()
	records[1].SourceIP = "127.0.0.1"

	res, err := e.Export(records, "captured_packets", PowerBIOptions())
	require.NoError(t, err)

	report, err := ValidateFile(res.Path)
	require.NoError(t, err)
	assert.True(t, report.HasBOM)
	assert.Equal(t, LayoutAnalytics, report.Layout)
	assert.Len(t, report.Header, 15)
	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 3, report.ValidRows)
	assert.Equal(t, 1, report.LocalhostRows)
	assert.Equal(t, map[string]int{"TCP": 1, "ARP": 1, "UDP": 1}, report.Protocols)
	assert.True(t, report.OK())
}

func TestValidateFile_BasicExport(t *testing.T) {
	e := newTestExporter(t)
	res, err := e.Export(sampleRecords(), "legacy", Options{IncludeHeader: true, Layout: LayoutBasic})
	require.NoError(t, err)

	report, err := ValidateFile(res.Path)
	require.NoError(t, err)
	assert.False(t, report.HasBOM)
	assert.Equal(t, LayoutBasic, report.Layout)
	assert.True(t, report.OK())
}

func TestValidate_RowIssues(t *testing.T) {
	input := BasicHeader + "\n" +
		`"2025-06-21 10:04:05.123","10.0.0.1","10.0.0.2",80,443,"TCP",60,"Incoming","ACK","HTTPS"` + "\n" +
		`"yesterday","10.0.0.1","10.0.0.2",80,443,"TCP",60,"Incoming","ACK","HTTPS"` + "\n" +
		`"2025-06-21 10:04:05","10.0.0.999","10.0.0.2",80,443,"TCP",60,"Incoming","ACK","HTTPS"` + "\n" +
		`"2025-06-21 10:04:05","10.0.0.1","10.0.0.2",http,443,"TCP",60,"Incoming","ACK","HTTPS"` + "\n" +
		`"2025-06-21 10:04:05","10.0.0.1","10.0.0.2",80,443,"TCP",big,"Incoming","ACK","HTTPS"` + "\n" +
		`"2025-06-21 10:04:05","10.0.0.1"` + "\n"

	report, err := Validate(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalRows)
	assert.Equal(t, 1, report.ValidRows)
	require.Len(t, report.Issues, 5)
	assert.Contains(t, report.Issues[0], "Row 3: invalid timestamp")
	assert.Contains(t, report.Issues[1], "invalid source IP")
	assert.Contains(t, report.Issues[2], "invalid source port")
	assert.Contains(t, report.Issues[3], "invalid packet length")
	assert.Contains(t, report.Issues[4], "column count mismatch")
	assert.False(t, report.OK())
}

func TestValidate_BadHeader(t *testing.T) {
	_, err := Validate(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.Error(t, err)

	_, err = Validate(strings.NewReader(""))
	assert.Error(t, err)
}
