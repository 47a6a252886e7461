package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	User     UserConfig     `toml:"user"`
	Playback PlaybackConfig `toml:"playback"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
}

// UserConfig contains sync backend credentials and device identity.
type UserConfig struct {
	AccessKey   string `toml:"access_key"`
	AccessToken string `toml:"access_token"`
	DeviceName  string `toml:"device_name"`
}

// PlaybackConfig contains player settings.
type PlaybackConfig struct {
	Volume float64 `toml:"volume"` // 0.0 to 1.0
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains sync backend and frontend bridge settings.
type ServerConfig struct {
	SyncURL string `toml:"sync_url"` // base URL of the podcast sync backend
	Host    string `toml:"host"`     // frontend bridge bind host
	Port    int    `toml:"port"`     // frontend bridge bind port
}

// StorageConfig contains local media storage settings.
type StorageConfig struct {
	DownloadDir string `toml:"download_dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigStore is the shared, process-wide configuration record.
//
// Every component takes read snapshots through Read; all updates funnel
// through Update, which persists the new value before making it visible.
// The mutex is never held across disk writes from Read's perspective: a
// reader either sees the previous config or the fully persisted next one,
// never a partial write.
type ConfigStore struct {
	mu      sync.Mutex
	current Config
	path    string
}

// NewConfigStore creates a ConfigStore around an initial config value.
// The path is where Update persists new values; it may name a file that
// does not exist yet.
func NewConfigStore(initial *Config, path string) *ConfigStore {
	if initial == nil {
		initial = DefaultConfig()
	}
	return &ConfigStore{current: *initial, path: path}
}

// Read returns a snapshot of the current configuration.
// It never blocks on I/O and always succeeds.
func (s *ConfigStore) Read() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update atomically replaces the configuration and persists it.
//
// The new value is written to a temporary file and renamed into place
// before the in-memory value is swapped, so a persist failure leaves the
// previous config untouched. Concurrent updates serialize; last writer
// wins. Callers decide whether to retry.
func (s *ConfigStore) Update(next Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(next); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigPersist, err)
	}

	s.current = next
	return nil
}

// persist writes the config as TOML via temp file + rename.
func (s *ConfigStore) persist(c Config) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp config: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}
