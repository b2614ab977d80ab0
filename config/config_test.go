package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/tiervault/classify"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Encryption {
		t.Error("encryption not on by default")
	}
	if cfg.ExportPolicy != "deny" {
		t.Errorf("exportPolicy = %q, want deny", cfg.ExportPolicy)
	}
	if cfg.DisableHoldCheck {
		t.Error("hold check disabled by default")
	}
	if cfg.Retention.HotDays != 7 || cfg.Retention.WarmDays != 30 || cfg.Retention.ColdDays != 90 {
		t.Errorf("retention = %+v, want 7/30/90", cfg.Retention)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiervault.yaml")
	raw := `baseDir: /var/lib/tiervault
retention:
  hotDays: 3
  warmDays: 14
  coldDays: 60
logRetention:
  access: 365
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retention.HotDays != 3 {
		t.Errorf("hotDays = %d, want 3", cfg.Retention.HotDays)
	}
	// Unset fields keep their defaults.
	if !cfg.Encryption {
		t.Error("encryption default lost")
	}
	if cfg.ExportPolicy != "deny" {
		t.Errorf("exportPolicy = %q, want default deny", cfg.ExportPolicy)
	}
	// Paths derive from baseDir.
	if cfg.KeyringPath != "/var/lib/tiervault/keys.log" {
		t.Errorf("keyringPath = %q", cfg.KeyringPath)
	}
	if cfg.HoldsPath != "/var/lib/tiervault/holds.log" {
		t.Errorf("holdsPath = %q", cfg.HoldsPath)
	}
	if cfg.LogsDir != "/var/lib/tiervault/logs" {
		t.Errorf("logsDir = %q", cfg.LogsDir)
	}
	if got := cfg.LogRetention["access"]; got != 365 {
		t.Errorf("logRetention.access = %d, want 365", got)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "tiervault.yaml")

	cfg := Default()
	cfg.BaseDir = "/srv/vault"
	cfg.LabelOrder = []string{"green", "amber", "red"}
	cfg.DefaultLabel = "green"
	cfg.ExportPolicy = "redact"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ExportPolicy != "redact" {
		t.Errorf("exportPolicy = %q, want redact", loaded.ExportPolicy)
	}
	if len(loaded.LabelOrder) != 3 || loaded.LabelOrder[2] != "red" {
		t.Errorf("labelOrder = %v", loaded.LabelOrder)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.BaseDir = "/srv/vault"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing baseDir", func(c *Config) { c.BaseDir = "" }},
		{"zero hot window", func(c *Config) { c.Retention.HotDays = 0 }},
		{"negative cold window", func(c *Config) { c.Retention.ColdDays = -1 }},
		{"unknown export policy", func(c *Config) { c.ExportPolicy = "shred" }},
		{"duplicate label", func(c *Config) { c.LabelOrder = []string{"a", "a"} }},
		{"default label outside order", func(c *Config) {
			c.LabelOrder = []string{"a", "b"}
			c.DefaultLabel = "z"
		}},
		{"zero log retention", func(c *Config) { c.LogRetention = map[string]int{"access": 0} }},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid config", tc.name)
		}
	}
}

func TestScheme(t *testing.T) {
	cfg := Default()
	scheme, err := cfg.Scheme()
	if err != nil {
		t.Fatalf("Scheme: %v", err)
	}
	if scheme.Default() != classify.Public {
		t.Errorf("default label = %q, want public", scheme.Default())
	}

	cfg.LabelOrder = []string{"low", "high"}
	scheme, err = cfg.Scheme()
	if err != nil {
		t.Fatalf("custom Scheme: %v", err)
	}
	if scheme.Default() != "low" {
		t.Errorf("default label = %q, want first of order", scheme.Default())
	}
	if !scheme.Allows("high", "low") || scheme.Allows("low", "high") {
		t.Error("custom order ranks wrong")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
