// Package config holds Nautilus's tunables, modeled on the teacher's
// internal/config/config.go: a single struct built from defaults, overlaid
// by an optional YAML file, then by environment variables — no
// process-wide singleton, no viper binding. The resulting *Config is passed
// explicitly into every component constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SummarizerConfig configures the LLM-backed promotion/crystallization call.
type SummarizerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKey      string  `yaml:"-"`
}

// DoorsPattern is one regular expression contributing to a context tag.
type DoorsPattern struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
}

// Config holds every Nautilus tunable from spec §6.
type Config struct {
	WorkspaceDir string `yaml:"workspace_dir"`
	StateDir     string `yaml:"state_dir"`
	MemoryDir    string `yaml:"memory_dir"`

	DecayRate            float64 `yaml:"decay_rate"`
	RecencyHalfLifeDays  float64 `yaml:"recency_half_life_days"`
	AuthorityBoost       float64 `yaml:"authority_boost"`
	MassCap              float64 `yaml:"mass_cap"`
	AtriumMaxHours       float64 `yaml:"atrium_max_hours"`
	CorridorMaxDays      float64 `yaml:"corridor_max_days"`
	AccessLogRetentionDays int   `yaml:"access_log_retention_days"`

	Summarizer SummarizerConfig `yaml:"summarizer"`

	PatternTable []DoorsPattern `yaml:"pattern_table"`

	DebugMode bool `yaml:"debug_mode"`

	// MinimumCandidates is the floor on base-retriever fan-out used by the
	// pipeline alongside n*3 (spec §4.6 stage 2).
	MinimumCandidates int `yaml:"minimum_candidates"`

	// DoorsPrefixLimitBytes bounds how much of a file auto_tag reads.
	DoorsPrefixLimitBytes int `yaml:"doors_prefix_limit_bytes"`

	// RegisterRecentHours is the default window for maintain's optional
	// record-write pre-step.
	RegisterRecentHours int `yaml:"register_recent_hours"`
}

// DefaultConfig returns Nautilus's built-in defaults (spec §6's Default
// column).
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		WorkspaceDir: ".",
		StateDir:     filepath.Join(home, ".local", "share"),
		MemoryDir:    "memory",

		DecayRate:              0.05,
		RecencyHalfLifeDays:    14,
		AuthorityBoost:         0.3,
		MassCap:                100.0,
		AtriumMaxHours:         48,
		CorridorMaxDays:        7,
		AccessLogRetentionDays: 90,

		Summarizer: SummarizerConfig{
			Enabled:     true,
			Endpoint:    "",
			Model:       "gemini-embedding-001",
			Temperature: 0.3,
			MaxTokens:   512,
		},

		PatternTable: DefaultPatternTable(),

		DebugMode:             false,
		MinimumCandidates:     20,
		DoorsPrefixLimitBytes: 5 * 1024,
		RegisterRecentHours:   24,
	}
}

// DefaultPatternTable is the built-in Doors pattern set (spec §4.4).
func DefaultPatternTable() []DoorsPattern {
	return []DoorsPattern{
		{Tag: "topic:meta", Patterns: []string{`\bnautilus\b`, `\bmemory\s+retrieval\b`}},
	}
}

// Load reads configuration from a YAML file, falling back to defaults if the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides overlays well-known environment variables on top of
// whatever was loaded from defaults/file, exactly as the teacher's
// Config.applyEnvOverrides does.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NAUTILUS_WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("NAUTILUS_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("NAUTILUS_MEMORY_DIR"); v != "" {
		c.MemoryDir = v
	}
	if v := os.Getenv("NAUTILUS_DEBUG"); v == "1" || v == "true" {
		c.DebugMode = true
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Summarizer.APIKey = v
	}
	if v := os.Getenv("NAUTILUS_SUMMARIZER_ENDPOINT"); v != "" {
		c.Summarizer.Endpoint = v
	}
	if v := os.Getenv("NAUTILUS_SUMMARIZER_MODEL"); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv("NAUTILUS_SUMMARIZER_DISABLE"); v == "1" || v == "true" {
		c.Summarizer.Enabled = false
	}
}

// DBPath returns the path to the embedded database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.StateDir, "nautilus", "nautilus.db")
}

// MemoryPath returns the absolute path of the memory tree.
func (c *Config) MemoryPath() string {
	return filepath.Join(c.WorkspaceDir, c.MemoryDir)
}

// CorridorsPath returns the absolute path of the corridors directory.
func (c *Config) CorridorsPath() string {
	return filepath.Join(c.MemoryPath(), "corridors")
}

// VaultsPath returns the absolute path of the vaults directory.
func (c *Config) VaultsPath() string {
	return filepath.Join(c.MemoryPath(), "vaults")
}
