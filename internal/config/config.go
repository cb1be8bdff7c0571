package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for zipatch.
type Config struct {
	BaseDir        string         `toml:"base_dir"`
	LogDir         string         `toml:"log_dir"`
	DownloadsDir   string         `toml:"downloads_dir"`
	DestinationDir string         `toml:"destination_dir"`
	Staging        StagingConfig  `toml:"staging"`
	Database       DatabaseConfig `toml:"database"`
	Decoders       DecodersConfig `toml:"decoders"`
	Workflow       WorkflowConfig `toml:"workflow"`
}

// StagingConfig represents configuration for the staging area.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string   `toml:"type"`                  // "filesystem" or "temp"
	StagingDir string   `toml:"staging_dir,omitempty"` // only used for type=filesystem
	Ignore     []string `toml:"ignore"`                // entries dropped from every extracted tree
	IgnoreFile string   `toml:"ignore_file,omitempty"` // extra patterns, one per line
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// DecodersConfig holds the external decoder commands for formats not
// decoded in-process.
type DecodersConfig struct {
	Rar      DecoderConfig `toml:"rar"`
	SevenZip DecoderConfig `toml:"sevenzip"`
}

// DecoderConfig is an external decoder invocation. The placeholders
// {archive} and {dest} in Args are replaced with the archive path and the
// extraction directory.
type DecoderConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// WorkflowConfig holds the interactive behaviour of a run.
type WorkflowConfig struct {
	CollapseDelay Duration `toml:"collapse_delay"`
	FinishDelay   Duration `toml:"finish_delay"`

	// Collapse is "ask" (default), "always" or "never".
	Collapse string `toml:"collapse"`

	// KeepStagingOnFailure leaves a partially extracted tree in the staging
	// directory when extraction fails.
	KeepStagingOnFailure bool `toml:"keep_staging_on_failure"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// DefaultRarDecoder extracts with unrar, refusing to prompt for a password.
func DefaultRarDecoder() DecoderConfig {
	return DecoderConfig{Command: "unrar", Args: []string{"x", "-p-", "-y", "{archive}", "{dest}/"}}
}

// DefaultSevenZipDecoder extracts with 7z.
func DefaultSevenZipDecoder() DecoderConfig {
	return DecoderConfig{Command: "7z", Args: []string{"x", "-y", "{archive}", "-o{dest}"}}
}

// NewConfig creates a new Config rooted at baseDir. downloadsDir and
// destinationDir are the starting points of the archive and destination prompts.
func NewConfig(baseDir, downloadsDir, destinationDir string) *Config {
	return &Config{
		BaseDir:        baseDir,
		LogDir:         filepath.Join(baseDir, "log"),
		DownloadsDir:   downloadsDir,
		DestinationDir: destinationDir,
		Staging: StagingConfig{
			Type:       "filesystem",
			StagingDir: filepath.Join(downloadsDir, "Temp"),
			Ignore:     []string{"__MACOSX", ".DS_Store", "Thumbs.db"},
			IgnoreFile: filepath.Join(baseDir, "ignore"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
		Decoders: DecodersConfig{
			Rar:      DefaultRarDecoder(),
			SevenZip: DefaultSevenZipDecoder(),
		},
		Workflow: WorkflowConfig{
			CollapseDelay: Duration{2 * time.Second},
			FinishDelay:   Duration{2 * time.Second},
			Collapse:      "ask",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
