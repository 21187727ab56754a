package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CaptureConfig controls where observations come from.
type CaptureConfig struct {
	Interface   string   `yaml:"interface"`
	PcapFile    string   `yaml:"pcap_file"`
	Duration    string   `yaml:"duration"`
	SnapshotLen int32    `yaml:"snapshot_len"`
	Promiscuous bool     `yaml:"promiscuous"`
	BPFFilter   string   `yaml:"bpf_filter"`
	LocalIPs    []string `yaml:"local_ips"`
	NumWorkers  int      `yaml:"num_workers"`
	ChannelSize int      `yaml:"size_of_packet_channel"`
	// PersistDir, when set, receives a pcap file of every raw frame captured.
	PersistDir string `yaml:"persist_dir"`
}

// ExportConfig controls CSV output.
type ExportConfig struct {
	OutputDir     string `yaml:"output_dir"`
	Filename      string `yaml:"filename"`
	IncludeHeader bool   `yaml:"include_header"`
	PowerBI       bool   `yaml:"power_bi"`
	Layout        string `yaml:"layout"`
}

// ClassifierConfig controls the throughput estimate.
type ClassifierConfig struct {
	// Seed makes the throughput multiplier reproducible when non-zero.
	Seed uint64 `yaml:"seed"`
}

// LoggingConfig configures the logrus logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// NATSConfig configures the record stream.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	FlushInterval string `yaml:"flush_interval"`
}

// ClickHouseConfig holds the connection details for the record table.
type ClickHouseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Database      string `yaml:"database"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	FlushInterval string `yaml:"flush_interval"`
}

// RedisConfig configures the summary store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// SnapshotConfig configures periodic gob snapshots of new records.
type SnapshotConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RootPath string `yaml:"root_path"`
	Interval string `yaml:"interval"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Capture    CaptureConfig    `yaml:"capture"`
	Export     ExportConfig     `yaml:"export"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Logging    LoggingConfig    `yaml:"logging"`
	NATS       NATSConfig       `yaml:"nats"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	API        APIConfig        `yaml:"api"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Duration:    "2m",
			SnapshotLen: 1600,
			Promiscuous: true,
			NumWorkers:  1,
			ChannelSize: 4096,
		},
		Export: ExportConfig{
			OutputDir:     "output",
			Filename:      "captured_packets",
			IncludeHeader: true,
			PowerBI:       true,
			Layout:        "analytics",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Subject:       "gons.records",
			FlushInterval: "5s",
		},
		ClickHouse: ClickHouseConfig{
			Host:          "localhost",
			Port:          9000,
			Database:      "default",
			Username:      "default",
			FlushInterval: "10s",
		},
		Redis:    RedisConfig{Addr: "localhost:6379", TTL: "24h"},
		Snapshot: SnapshotConfig{RootPath: "snapshots", Interval: "30s"},
		API:      APIConfig{ListenAddr: ":8080"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of Default and
// then applies environment overrides. An empty path skips the file.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NS_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("NS_INTERFACE"); v != "" {
		c.Capture.Interface = v
	}
	if v := os.Getenv("NS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NS_NATS_URL"); v != "" {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}
	if v := os.Getenv("NS_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("NS_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("NS_CLASSIFIER_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid NS_CLASSIFIER_SEED: %w", err)
		}
		c.Classifier.Seed = seed
	}
	return nil
}

// Validate checks durations, counts and enumerations.
func (c *Config) Validate() error {
	if _, err := c.CaptureDuration(); err != nil {
		return err
	}
	if c.Capture.NumWorkers < 0 {
		return fmt.Errorf("capture.num_workers must not be negative, got %d", c.Capture.NumWorkers)
	}
	if c.Capture.ChannelSize < 0 {
		return fmt.Errorf("capture.size_of_packet_channel must not be negative, got %d", c.Capture.ChannelSize)
	}
	switch c.Export.Layout {
	case "", "analytics", "basic":
	default:
		return fmt.Errorf("unknown export layout '%s'", c.Export.Layout)
	}
	for name, d := range map[string]string{
		"nats.flush_interval":       c.NATS.FlushInterval,
		"clickhouse.flush_interval": c.ClickHouse.FlushInterval,
		"redis.ttl":                 c.Redis.TTL,
		"snapshot.interval":         c.Snapshot.Interval,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// CaptureDuration parses capture.duration. Zero means capture until stopped.
func (c *Config) CaptureDuration() (time.Duration, error) {
	if c.Capture.Duration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Capture.Duration)
	if err != nil {
		return 0, fmt.Errorf("invalid capture duration: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("capture duration must not be negative")
	}
	return d, nil
}

// Duration parses s, returning def when s is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
