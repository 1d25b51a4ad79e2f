package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "PROMPTBLOCKS_CONFIG"

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Web     WebConfig     `yaml:"web"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
}

// StorageConfig locates the program database.
type StorageConfig struct {
	// Path of the SQLite file. Relative paths resolve against ConfigDir.
	Path string `yaml:"path"`
}

type WebConfig struct {
	Port int `yaml:"port"`
	// AutosaveDelayMS is the idle time before a live edit is persisted.
	AutosaveDelayMS int `yaml:"autosave_delay_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// AuditConfig controls the JSONL record of compiled prompts.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
	FilePrefix    string `yaml:"file_prefix,omitempty"`
	// CleanupSchedule is a cron expression used by the web server.
	CleanupSchedule string `yaml:"cleanup_schedule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "promptblocks.db",
		},
		Web: WebConfig{
			Port:            18090,
			AutosaveDelayMS: 500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Enabled:         false,
			Dir:             "compile-audit",
			RetentionDays:   7,
			FilePrefix:      "compile",
			CleanupSchedule: "@daily",
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptblocks")
}

// ConfigPath returns the config file location, honouring EnvConfigPath.
func ConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptblocks.yaml")
}

// Load reads the config from ConfigPath. A missing file yields defaults.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads the config at path over the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to ConfigPath.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ResolvePath makes a relative path absolute against ConfigDir.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ConfigDir(), p)
}

// Resolved returns a copy of c with storage and audit paths made absolute.
func (c *Config) Resolved() *Config {
	out := *c
	out.Storage.Path = ResolvePath(c.Storage.Path)
	out.Audit.Dir = ResolvePath(c.Audit.Dir)
	out.Logging.File = ResolvePath(c.Logging.File)
	return &out
}
