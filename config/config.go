// Package config loads the YAML configuration of the stitchgo service.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/stitchgo"
	"github.com/hupe1980/stitchgo/artifact"
	"github.com/hupe1980/stitchgo/codec"
	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/isoline"
)

// Config is the complete service configuration.
type Config struct {
	YarnWidth        float64       `yaml:"yarn_width"`
	Policy           string        `yaml:"policy"`    // overlapping, disjoint
	Adjacency        string        `yaml:"adjacency"` // face, coincident
	Concurrency      int           `yaml:"concurrency"`
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"`
	PollInterval     time.Duration `yaml:"poll_interval"`

	Codec       string `yaml:"codec"`       // json, go-json, msgpack
	Compression string `yaml:"compression"` // none, lz4, zstd

	Solver  SolverConfig  `yaml:"solver"`
	Store   StoreConfig   `yaml:"store"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SolverConfig overrides crossfield.DefaultSettings. Zero values keep the
// default.
type SolverConfig struct {
	Alignment      string        `yaml:"alignment"` // rotated, gradient
	MaxIterations  int           `yaml:"max_iterations"`
	MaxEvaluations int           `yaml:"max_evaluations"`
	Runtime        time.Duration `yaml:"runtime"`
	Memory         int           `yaml:"memory"`
}

// StoreConfig selects the blob store holding inbox and artifacts.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, local, s3, minio
	Path    string `yaml:"path"`    // local
	Inbox   string `yaml:"inbox"`

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// LedgerConfig selects the job ledger.
type LedgerConfig struct {
	Backend string `yaml:"backend"` // memory, dynamo
	Table   string `yaml:"table"`
	Region  string `yaml:"region"`
}

// MQTTConfig enables notifications when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used for unset fields.
func Default() *Config {
	return &Config{
		YarnWidth:    stitchgo.DefaultYarnWidth,
		Policy:       "overlapping",
		Adjacency:    "face",
		Concurrency:  1,
		PollInterval: 2 * time.Second,
		Codec:        "json",
		Compression:  "none",
		Store: StoreConfig{
			Backend: "local",
			Path:    "data",
			Inbox:   "inbox/",
		},
		Ledger: LedgerConfig{Backend: "memory"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and parses a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !(c.YarnWidth > 0) {
		return fmt.Errorf("yarn_width must be > 0")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	if c.MemoryLimitBytes < 0 {
		return fmt.Errorf("memory_limit_bytes must be >= 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	if _, err := isoline.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if _, err := stitchgo.ParseAdjacencyMode(c.Adjacency); err != nil {
		return err
	}
	if _, err := crossfield.ParseAlignment(c.Solver.Alignment); err != nil {
		return err
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	if _, err := artifact.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Store.Backend {
	case "memory":
	case "local":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the local backend")
		}
	case "s3", "minio":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the %s backend", c.Store.Backend)
		}
		if c.Store.Backend == "minio" && c.Store.Endpoint == "" {
			return fmt.Errorf("store.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	switch c.Ledger.Backend {
	case "memory":
	case "dynamo":
		if c.Ledger.Table == "" {
			return fmt.Errorf("ledger.table is required for the dynamo backend")
		}
	default:
		return fmt.Errorf("unknown ledger.backend %q", c.Ledger.Backend)
	}

	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

// SolverSettings returns crossfield.DefaultSettings with the configured
// overrides applied.
func (c *Config) SolverSettings() crossfield.Settings {
	s := crossfield.DefaultSettings()
	s.Alignment, _ = crossfield.ParseAlignment(c.Solver.Alignment)
	if c.Solver.MaxIterations > 0 {
		s.MaxIterations = c.Solver.MaxIterations
	}
	if c.Solver.MaxEvaluations > 0 {
		s.MaxEvaluations = c.Solver.MaxEvaluations
	}
	if c.Solver.Runtime > 0 {
		s.Runtime = c.Solver.Runtime
	}
	if c.Solver.Memory > 0 {
		s.Memory = c.Solver.Memory
	}
	return s
}

// GeneratorOptions returns the stitchgo options of a validated config.
func (c *Config) GeneratorOptions() []stitchgo.Option {
	policy, _ := isoline.ParsePolicy(c.Policy)
	adjacency, _ := stitchgo.ParseAdjacencyMode(c.Adjacency)

	return []stitchgo.Option{
		stitchgo.WithYarnWidth(c.YarnWidth),
		stitchgo.WithIsolinePolicy(policy),
		stitchgo.WithAdjacency(adjacency),
		stitchgo.WithConcurrency(c.Concurrency),
		stitchgo.WithMemoryLimit(c.MemoryLimitBytes),
		stitchgo.WithSolverSettings(c.SolverSettings()),
	}
}

// ArtifactOptions returns the artifact store options of a validated config.
func (c *Config) ArtifactOptions() []artifact.Option {
	cd, _ := codec.ByName(c.Codec)
	comp, _ := artifact.ParseCompression(c.Compression)
	return []artifact.Option{artifact.WithCodec(cd), artifact.WithCompression(comp)}
}

// PayloadCodec returns the configured codec.
func (c *Config) PayloadCodec() codec.Codec {
	cd, ok := codec.ByName(c.Codec)
	if !ok {
		return codec.Default
	}
	return cd
}

// Logger builds the process logger.
func (c *Config) Logger() *stitchgo.Logger {
	level, _ := ParseLogLevel(c.Log.Level)
	if c.Log.Format == "json" {
		return stitchgo.NewJSONLogger(level)
	}
	return stitchgo.NewTextLogger(level)
}

// ParseLogLevel parses debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
