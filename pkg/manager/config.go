package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/process"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile     = "sphinx.conf"
	DefaultSearchdName    = "searchd"
	DefaultIndexerName    = "indexer"
	DefaultProcessTimeout = 10
	DefaultPollInterval   = 1 * time.Second

	// DaemonSection is the config file section holding the PID file path.
	DaemonSection = "searchd"
	PIDFileKey    = "pid_file"
)

// Config is the manager's configuration. NewManager copies it; the
// manager never mutates the caller's value.
type Config struct {
	// ConfigFile is the daemon's own config file, passed as --config.
	ConfigFile string `yaml:"config_file"`
	// PIDFile, when set, overrides the pid_file found in ConfigFile.
	PIDFile string `yaml:"pid_file,omitempty"`
	// BinDir, when set, is where both binaries live. PATH is searched otherwise.
	BinDir string `yaml:"bindir,omitempty"`

	SearchdName string   `yaml:"searchd_name,omitempty"`
	IndexerName string   `yaml:"indexer_name,omitempty"`
	SearchdArgs []string `yaml:"searchd_args,omitempty"`
	IndexerArgs []string `yaml:"indexer_args,omitempty"`

	// SearchdSudo and IndexerSudo prefix the command line, e.g. ["sudo", "-u", "sphinx"].
	// Signals to a daemon started through SearchdSudo go through "<prefix> kill".
	SearchdSudo []string `yaml:"searchd_sudo,omitempty"`
	IndexerSudo []string `yaml:"indexer_sudo,omitempty"`

	// WorkingDirectory and Environment apply to both searchd and indexer.
	// Environment entries are KEY=VALUE and extend the manager's own.
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
	Environment      []string `yaml:"environment,omitempty"`

	// ProcessTimeout is in seconds. Nil means DefaultProcessTimeout; zero
	// checks the process table once without waiting.
	ProcessTimeout *int          `yaml:"process_timeout,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	Debug          int           `yaml:"debug,omitempty"`
}

// TimeoutSeconds is ProcessTimeout, or the default when unset.
func (c Config) TimeoutSeconds() int {
	if c.ProcessTimeout == nil {
		return DefaultProcessTimeout
	}
	return *c.ProcessTimeout
}

// Timeout is ProcessTimeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds()) * time.Second
}

// LoadConfigFromFile loads manager configuration from a YAML file
func LoadConfigFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	config = WithDefaults(config)
	if err := ValidateConfig(config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// WithDefaults returns config with unset fields filled in.
func WithDefaults(config Config) Config {
	if config.ConfigFile == "" {
		config.ConfigFile = DefaultConfigFile
	}
	if config.SearchdName == "" {
		config.SearchdName = DefaultSearchdName
	}
	if config.IndexerName == "" {
		config.IndexerName = DefaultIndexerName
	}
	timeout := config.TimeoutSeconds()
	config.ProcessTimeout = &timeout
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}

	// Slices are copied so later edits by the caller do not leak in.
	config.SearchdArgs = append([]string(nil), config.SearchdArgs...)
	config.IndexerArgs = append([]string(nil), config.IndexerArgs...)
	config.SearchdSudo = append([]string(nil), config.SearchdSudo...)
	config.IndexerSudo = append([]string(nil), config.IndexerSudo...)
	config.Environment = append([]string(nil), config.Environment...)
	return config
}

// ValidateConfig validates the configuration after defaults are applied.
func ValidateConfig(config Config) error {
	if config.ConfigFile == "" {
		return errors.NewValidationError("config file cannot be empty", nil)
	}
	if config.TimeoutSeconds() < 0 {
		return errors.NewValidationError(
			fmt.Sprintf("process timeout cannot be negative: %d", config.TimeoutSeconds()), nil,
		).WithContext("process_timeout", config.TimeoutSeconds())
	}
	if config.PollInterval < 0 {
		return errors.NewValidationError("poll interval cannot be negative", nil).WithContext("poll_interval", config.PollInterval.String())
	}
	if config.Debug < 0 {
		return errors.NewValidationError("debug level cannot be negative", nil)
	}
	if config.SearchdName == "" || config.IndexerName == "" {
		return errors.NewValidationError("binary names cannot be empty", nil)
	}
	if filepath.Base(config.SearchdName) != config.SearchdName || filepath.Base(config.IndexerName) != config.IndexerName {
		return errors.NewValidationError("binary names must not contain a directory; use bindir", nil).
			WithContext("searchd_name", config.SearchdName).
			WithContext("indexer_name", config.IndexerName)
	}
	if err := process.ValidateExecutionConfig(process.ExecutionConfig{
		ExecutablePath:   config.SearchdName,
		Environment:      config.Environment,
		WorkingDirectory: config.WorkingDirectory,
	}); err != nil {
		return err
	}
	return nil
}
