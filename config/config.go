package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tiervault/classify"
	"github.com/randalmurphal/tiervault/compliance"
)

// Config is the full configuration surface of the storage engine.
type Config struct {
	// BaseDir is the root directory for tiered storage.
	BaseDir string `yaml:"baseDir"`

	// Encryption seals artifact payloads at rest.
	Encryption bool `yaml:"encryption"`

	// KeyringPath is the append-only keyring log location.
	// Defaults to <baseDir>/keys.log.
	KeyringPath string `yaml:"keyringPath,omitempty"`

	// HoldsPath is the legal-hold log location.
	// Defaults to <baseDir>/holds.log.
	HoldsPath string `yaml:"holdsPath,omitempty"`

	// LogsDir holds the auxiliary audit logs, one file per subsystem.
	// Defaults to <baseDir>/logs.
	LogsDir string `yaml:"logsDir,omitempty"`

	// LabelOrder lists classification labels least sensitive first.
	// Empty means the default four-level order.
	LabelOrder []string `yaml:"labelOrder,omitempty"`

	// DefaultLabel is applied to writes without a label.
	// Defaults to the first entry of LabelOrder.
	DefaultLabel string `yaml:"defaultLabel,omitempty"`

	// ExportPolicy is "deny" or "redact" for over-classified
	// artifacts during export. Defaults to "deny".
	ExportPolicy string `yaml:"exportPolicy,omitempty"`

	// DisableHoldCheck turns off the legal-hold veto on delete.
	DisableHoldCheck bool `yaml:"disableHoldCheck,omitempty"`

	// Retention holds the per-tier windows in days.
	Retention RetentionConfig `yaml:"retention"`

	// LogRetention maps auxiliary log kinds to windows in days.
	LogRetention map[string]int `yaml:"logRetention,omitempty"`
}

// RetentionConfig defines the per-tier retention windows.
type RetentionConfig struct {
	HotDays  int `yaml:"hotDays"`
	WarmDays int `yaml:"warmDays"`
	ColdDays int `yaml:"coldDays"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Encryption:   true,
		ExportPolicy: string(compliance.PolicyDeny),
		Retention: RetentionConfig{
			HotDays:  7,
			WarmDays: 30,
			ColdDays: 90,
		},
	}
}

// Load reads configuration from a YAML file, layering the file's
// values over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// Save writes the configuration to a YAML file.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.BaseDir == "" {
		return
	}
	if c.KeyringPath == "" {
		c.KeyringPath = filepath.Join(c.BaseDir, "keys.log")
	}
	if c.HoldsPath == "" {
		c.HoldsPath = filepath.Join(c.BaseDir, "holds.log")
	}
	if c.LogsDir == "" {
		c.LogsDir = filepath.Join(c.BaseDir, "logs")
	}
}

// Validate checks the configuration for internally consistent values.
func (c Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("baseDir is required")
	}
	if c.Retention.HotDays <= 0 || c.Retention.WarmDays <= 0 || c.Retention.ColdDays <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}
	switch compliance.ExportPolicy(c.ExportPolicy) {
	case compliance.PolicyDeny, compliance.PolicyRedact:
	default:
		return fmt.Errorf("exportPolicy must be %q or %q, got %q",
			compliance.PolicyDeny, compliance.PolicyRedact, c.ExportPolicy)
	}
	if _, err := c.Scheme(); err != nil {
		return err
	}
	for kind, days := range c.LogRetention {
		if days <= 0 {
			return fmt.Errorf("logRetention.%s must be positive, got %d", kind, days)
		}
	}
	return nil
}

// Scheme builds the classification scheme from LabelOrder and
// DefaultLabel.
func (c Config) Scheme() (classify.Scheme, error) {
	if len(c.LabelOrder) == 0 {
		return classify.DefaultScheme(), nil
	}

	order := make([]classify.Label, len(c.LabelOrder))
	for i, l := range c.LabelOrder {
		order[i] = classify.Label(l)
	}

	deflt := classify.Label(c.DefaultLabel)
	if deflt == "" {
		deflt = order[0]
	}
	return classify.NewScheme(order, deflt)
}
