package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathReadsSections(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".promptblocks.yaml")
	content := `storage:
  path: "/var/lib/promptblocks/programs.db"
web:
  port: 9000
  autosave_delay_ms: 250
logging:
  level: debug
audit:
  enabled: true
  dir: audit
  retention_days: 3
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Path != "/var/lib/promptblocks/programs.db" {
		t.Fatalf("unexpected storage path: %q", cfg.Storage.Path)
	}
	if cfg.Web.Port != 9000 || cfg.Web.AutosaveDelayMS != 250 {
		t.Fatalf("unexpected web config: %#v", cfg.Web)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
	if !cfg.Audit.Enabled || cfg.Audit.RetentionDays != 3 {
		t.Fatalf("unexpected audit config: %#v", cfg.Audit)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Audit.FilePrefix != "compile" || cfg.Audit.CleanupSchedule != "@daily" {
		t.Fatalf("expected audit defaults to survive, got %#v", cfg.Audit)
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Web.Port != DefaultConfig().Web.Port {
		t.Fatalf("expected default port, got %d", cfg.Web.Port)
	}
}

func TestLoadFromPathRejectsBadYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("web: [unclosed"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromPath(cfgPath); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Web.Port = 12345
	if err := cfg.SaveTo(cfgPath); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Web.Port != 12345 {
		t.Fatalf("expected port 12345, got %d", loaded.Web.Port)
	}
}

func TestConfigPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/promptblocks.yaml")
	if got := ConfigPath(); got != "/etc/promptblocks.yaml" {
		t.Fatalf("ConfigPath() = %q", got)
	}
}

func TestResolved(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/abs/programs.db"
	r := cfg.Resolved()
	if r.Storage.Path != "/abs/programs.db" {
		t.Fatalf("absolute path changed: %q", r.Storage.Path)
	}
	if !filepath.IsAbs(r.Audit.Dir) && r.Audit.Dir != filepath.Join(ConfigDir(), "compile-audit") {
		t.Fatalf("audit dir not resolved: %q", r.Audit.Dir)
	}
	if r.Logging.File != "" {
		t.Fatalf("empty log file should stay empty, got %q", r.Logging.File)
	}
	if cfg.Audit.Dir != "compile-audit" {
		t.Fatalf("Resolved mutated the receiver")
	}
}
