// Package config handles sentryd configuration loading, validation,
// and defaulting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentryd/sentryd/internal/apperr"
)

// searchPathsFunc is overridden in tests to avoid matching real config
// files on developer or deploy machines.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order. An explicit
// path (from the -config flag) is checked first by FindConfig; this
// list is the fallback order.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sentryd", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/sentryd/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise searches searchPathsFunc() and returns the first
// path that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all sentryd configuration: IMAP accounts, the global
// classifier thresholds, scheduler tuning, and storage location.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Accounts  []AccountConfig `yaml:"accounts"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Redis     RedisConfig     `yaml:"redis"`
	Listen    ListenConfig    `yaml:"listen"`
}

// ListenConfig defines the minimal HTTP control surface's bind address.
type ListenConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// RedisConfig configures the optional read-through cache in front of
// DomainCache/GeoCache. Empty Address disables the cache entirely —
// tier2 then reads/writes SQLite directly.
type RedisConfig struct {
	Address string `yaml:"address"`
	DB      int    `yaml:"db"`
	TTLMins int    `yaml:"ttl_minutes"`
}

// SchedulerConfig tunes the automation/batch scheduler (spec.md §4.8).
type SchedulerConfig struct {
	IntervalMinutes      int `yaml:"interval_minutes"`
	MaxConcurrentAccounts int `yaml:"max_concurrent_accounts"`
	PerSessionTimeoutMins int `yaml:"per_session_timeout_minutes"`
}

// ClassifierConfig holds the global classifier tuning knobs from
// spec.md §6.
type ClassifierConfig struct {
	Tier1ConfidenceThreshold float64 `yaml:"tier1_confidence_threshold"`
	Tier3ConfidenceThreshold float64 `yaml:"tier3_confidence_threshold"`
	Tier3BudgetPct           float64 `yaml:"tier3_budget_pct"`
	TaxonomyV2RolloutPct     int     `yaml:"taxonomy_v2_rollout_pct"`
}

// AccountConfig describes one IMAP account and its per-provider tuning.
type AccountConfig struct {
	Name                      string   `yaml:"name"`
	Email                     string   `yaml:"email"`
	Provider                  string   `yaml:"provider"` // "gmail", "icloud", "generic", ...
	IMAP                      IMAPConfig `yaml:"imap"`
	TargetFolders             []string `yaml:"target_folders"`
	BatchSizeOverride         int      `yaml:"batch_size_override"`
	ConfidenceThresholdOverride *float64 `yaml:"confidence_threshold_override"`
	TrustedAuthDomains        []string `yaml:"trusted_auth_domains"`
}

// IMAPConfig holds IMAP server connection parameters.
type IMAPConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	TLS              bool   `yaml:"tls"`
	Username         string `yaml:"username"`
	CredentialHandle string `yaml:"credential_handle"` // supports ${ENV_VAR} expansion
}

// Load reads, expands environment variables in, and validates a config
// file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, fmt.Sprintf("read config %s", path), err)
	}

	expanded := os.Expand(string(raw), func(name string) string {
		return os.Getenv(name)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, apperr.New(apperr.KindConfig, fmt.Sprintf("parse config %s", path), err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, apperr.New(apperr.KindConfig, fmt.Sprintf("invalid config %s", path), err)
	}

	return &cfg, nil
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Classifier.Tier1ConfidenceThreshold == 0 {
		c.Classifier.Tier1ConfidenceThreshold = 0.70
	}
	if c.Classifier.Tier3ConfidenceThreshold == 0 {
		c.Classifier.Tier3ConfidenceThreshold = 0.70
	}
	if c.Classifier.Tier3BudgetPct == 0 {
		c.Classifier.Tier3BudgetPct = 1.0
	}

	if c.Scheduler.IntervalMinutes == 0 {
		c.Scheduler.IntervalMinutes = 30
	}
	if c.Scheduler.MaxConcurrentAccounts == 0 {
		c.Scheduler.MaxConcurrentAccounts = 4
	}
	if c.Scheduler.PerSessionTimeoutMins == 0 {
		c.Scheduler.PerSessionTimeoutMins = 20
	}

	if c.Redis.TTLMins == 0 {
		c.Redis.TTLMins = 60
	}

	if c.Listen.Port == 0 {
		c.Listen.Port = 8850
	}

	for i := range c.Accounts {
		if c.Accounts[i].IMAP.Port == 0 {
			c.Accounts[i].IMAP.Port = 993
		}
		if !c.Accounts[i].IMAP.TLS && c.Accounts[i].IMAP.Port != 143 {
			c.Accounts[i].IMAP.TLS = true
		}
		if c.Accounts[i].Provider == "" {
			c.Accounts[i].Provider = "generic"
		}
		if c.Accounts[i].BatchSizeOverride == 0 {
			c.Accounts[i].BatchSizeOverride = ProviderDefaults(c.Accounts[i].Provider).BatchSize
		}
		if len(c.Accounts[i].TargetFolders) == 0 {
			c.Accounts[i].TargetFolders = []string{"INBOX"}
		}
	}
}

// Validate checks that the configuration is internally consistent.
// Returns an error describing the first problem found.
func (c Config) Validate() error {
	names := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.Name == "" {
			return fmt.Errorf("accounts[%d].name must not be empty", i)
		}
		if names[a.Name] {
			return fmt.Errorf("accounts[%d].name %q is a duplicate", i, a.Name)
		}
		names[a.Name] = true

		if a.IMAP.Host == "" {
			return fmt.Errorf("accounts[%d] (%s): imap.host is required", i, a.Name)
		}
		if a.IMAP.Username == "" {
			return fmt.Errorf("accounts[%d] (%s): imap.username is required", i, a.Name)
		}
		if a.IMAP.Port < 1 || a.IMAP.Port > 65535 {
			return fmt.Errorf("accounts[%d] (%s): imap.port %d out of range (1-65535)", i, a.Name, a.IMAP.Port)
		}
		if _, ok := knownProviders[a.Provider]; !ok {
			return fmt.Errorf("accounts[%d] (%s): unknown provider %q", i, a.Name, a.Provider)
		}
	}

	if c.Classifier.TaxonomyV2RolloutPct < 0 || c.Classifier.TaxonomyV2RolloutPct > 100 {
		return fmt.Errorf("classifier.taxonomy_v2_rollout_pct must be within 0..100")
	}

	return nil
}

// ResolvedConfidenceThreshold returns the effective tier1 confidence
// threshold for an account: its own override if set, else the
// per-provider default, else the global default. This implements the
// Open Question resolution in SPEC_FULL.md — per-provider thresholds
// are first-class overrides, not hard-coded constants.
func (a AccountConfig) ResolvedConfidenceThreshold(global ClassifierConfig) float64 {
	if a.ConfidenceThresholdOverride != nil {
		return *a.ConfidenceThresholdOverride
	}
	if d := ProviderDefaults(a.Provider).ConfidenceThreshold; d > 0 {
		return d
	}
	return global.Tier1ConfidenceThreshold
}

// credentialEnvPrefix is the convention documented for CredentialHandle:
// values of the form "${VAR}" are expanded against the environment by
// Load before parsing; values without that form are used verbatim
// (e.g., a path to a locally-mounted secret file is resolved by the
// caller, not by this package).
const credentialEnvPrefix = "${"

// IsEnvCredential reports whether a credential handle contains a
// "${VAR}" token. Load expands every such token before parsing and
// replaces an unset variable with the empty string, so an unset
// variable leaves an empty handle rather than a leftover token.
func IsEnvCredential(handle string) bool {
	return strings.Contains(handle, credentialEnvPrefix)
}
