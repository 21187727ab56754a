package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ns.log")

	log, err := New(Options{Level: "debug", Format: "json", FilePath: path})
	require.NoError(t, err)
	log.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(Options{FilePath: "/invalid-path/does-not-exist.log"})
	assert.Error(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "json", logrus.InfoLevel)

	log.WithFields(map[string]any{"session": "abc"}).Error(errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["session"])
	assert.Equal(t, "error", line["level"])
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Warnf("nothing %d", 1)
	assert.NotNil(t, log.WithFields(map[string]any{"a": 1}))
}
