package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StorageDir string `toml:"storage_dir"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
}

// Storage selects the artifact storage backend.
type Storage struct {
	Backend     string `toml:"backend"`
	GCSBucket   string `toml:"gcs_bucket"`
	GCSPrefix   string `toml:"gcs_prefix"`
	GCSEndpoint string `toml:"gcs_endpoint"`
}

// Encoder describes how the external transcoding binary is invoked.
type Encoder struct {
	Binary         string   `toml:"binary"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	VideoCodec     string   `toml:"video_codec"`
	CRF            int      `toml:"crf"`
	AudioCodec     string   `toml:"audio_codec"`
	ExtraArgs      []string `toml:"extra_args"`
	Container      string   `toml:"container"`
}

// Profile is one named rendition target. Size is passed to the encoder as the
// frame size argument (for example hd480 or 1280x720).
type Profile struct {
	Name string `toml:"name"`
	Size string `toml:"size"`
}

// Workflow contains worker pool timing and concurrency settings.
type Workflow struct {
	Workers            int  `toml:"workers"`
	QueuePollInterval  int  `toml:"queue_poll_interval"`
	ErrorRetryInterval int  `toml:"error_retry_interval"`
	HeartbeatInterval  int  `toml:"heartbeat_interval"`
	HeartbeatTimeout   int  `toml:"heartbeat_timeout"`
	ParallelProfiles   bool `toml:"parallel_profiles"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics controls the Prometheus endpoint exposed by the worker.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Config encapsulates all configuration values for videoflix.
//
// Configuration sections by subsystem:
//   - Paths: database, storage, scratch, and log directories
//   - Storage: local filesystem or Google Cloud Storage backend
//   - Encoder: external encoder binary, codec arguments, and timeout
//   - Profiles: ordered rendition targets
//   - Categories: ordered keyword allow-list for category tagging
//   - Workflow: worker count, polling intervals, and heartbeats
//   - Logging: log format and level
//   - Metrics: Prometheus exposition
type Config struct {
	Categories []string  `toml:"categories"`
	Paths      Paths     `toml:"paths"`
	Storage    Storage   `toml:"storage"`
	Encoder    Encoder   `toml:"encoder"`
	Profiles   []Profile `toml:"profiles"`
	Workflow   Workflow  `toml:"workflow"`
	Logging    Logging   `toml:"logging"`
	Metrics    Metrics   `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("videoflix.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker and CLI operation.
// The storage directory is only created for the local backend.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Paths.StorageDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the asset catalog and job queue.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "videoflix.db")
}

// EncodeTimeout returns the hard per-invocation encoder timeout.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Encoder.TimeoutSeconds) * time.Second
}

// ProfileNames returns the configured profile names in processing order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return names
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
