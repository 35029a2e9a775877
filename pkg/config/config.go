package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Failure policies applied when a whole-file write does not complete.
const (
	// PolicyRemove deletes a file that was created but not fully written.
	PolicyRemove = "remove"
	// PolicyKeep leaves a partially written or empty file behind.
	PolicyKeep = "keep"
	// PolicyAtomic writes through a temp file and rename, so a failure never
	// touches the previous content.
	PolicyAtomic = "atomic"
)

// Defaults for the write demo.
const (
	DefaultPath          = "./example.txt"
	DefaultFirstPayload  = "Hello from write_all()!"
	DefaultSecondPayload = "Hello from write()!"
)

var (
	ErrInvalidPolicy = errors.New("invalid failure policy")
	ErrEmptyPath     = errors.New("target path is empty")
)

// WriteConfig holds configuration for the write demo and its supporting stack.
type WriteConfig struct {
	// Path is the destination both writers target.
	Path string `yaml:"path"`

	// FirstPayload is written with the explicit-handle shape.
	FirstPayload string `yaml:"first_payload"`

	// SecondPayload is written with the one-call shape and is what remains on disk.
	SecondPayload string `yaml:"second_payload"`

	// FailurePolicy is one of "remove", "keep" or "atomic".
	FailurePolicy string `yaml:"failure_policy"`

	// JournalDir enables the Pebble write journal when non-empty.
	JournalDir string `yaml:"journal_dir"`

	// MetricsFile receives a Prometheus textfile dump when non-empty.
	MetricsFile string `yaml:"metrics_file"`

	// Observe logs filesystem events on the target while writing.
	Observe bool `yaml:"observe"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *WriteConfig {
	return &WriteConfig{
		Path:          DefaultPath,
		FirstPayload:  DefaultFirstPayload,
		SecondPayload: DefaultSecondPayload,
		FailurePolicy: PolicyRemove,
		LogLevel:      "info",
	}
}

// LoadFile overlays values from a YAML file onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *WriteConfig, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	return nil
}

// LoadFromEnv overlays IOPRIMER_* environment variables onto cfg.
func LoadFromEnv(cfg *WriteConfig) *WriteConfig {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if v := os.Getenv("IOPRIMER_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("IOPRIMER_FAILURE_POLICY"); v != "" {
		cfg.FailurePolicy = strings.ToLower(v)
	}
	if v := os.Getenv("IOPRIMER_JOURNAL_DIR"); v != "" {
		cfg.JournalDir = v
	}
	if v := os.Getenv("IOPRIMER_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv("IOPRIMER_OBSERVE"); v != "" {
		cfg.Observe = v == "1" || v == "true" || v == "TRUE"
	}
	if v := os.Getenv("IOPRIMER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *WriteConfig) Validate() error {
	if c.Path == "" {
		return ErrEmptyPath
	}

	switch c.FailurePolicy {
	case PolicyRemove, PolicyKeep, PolicyAtomic:
	default:
		return errors.Wrapf(ErrInvalidPolicy, "%q (must be 'remove', 'keep' or 'atomic')", c.FailurePolicy)
	}

	return nil
}
