package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/history"
	"github.com/skillgate/skillgate/internal/runner"
)

// Config represents the full skillgate configuration
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Cache     CacheConfig     `mapstructure:"cache"`
	History   HistoryConfig   `mapstructure:"history"`
}

// WorkspaceConfig locates the checkout and its skill definitions
type WorkspaceConfig struct {
	Root       string `mapstructure:"root"`
	SkillsRoot string `mapstructure:"skills_root"`
}

// ToolsConfig names the external tools and their time limits
type ToolsConfig struct {
	Structural            string `mapstructure:"structural"`
	StructuralTimeoutSecs int    `mapstructure:"structural_timeout_secs"`
	CustomTimeoutSecs     int    `mapstructure:"custom_timeout_secs"`
}

// CacheConfig controls the tracked-file cache
type CacheConfig struct {
	TTLSecs int `mapstructure:"ttl_secs"`
}

// HistoryConfig controls the local run log
type HistoryConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	Path     string `mapstructure:"path"`
}

// Timeouts must stay within this window so a hung tool neither kills a
// quick run nor stalls CI indefinitely.
const (
	minTimeoutSecs = 300
	maxTimeoutSecs = 900
)

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, faults.WrapUsage(err, "unmarshal config")
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}

	if cfg.Workspace.SkillsRoot == "" {
		cfg.Workspace.SkillsRoot = "skills"
	}

	if cfg.Tools.Structural == "" {
		cfg.Tools.Structural = "ast-grep"
	}

	if cfg.Tools.StructuralTimeoutSecs == 0 {
		cfg.Tools.StructuralTimeoutSecs = 600
	}

	if cfg.Tools.CustomTimeoutSecs == 0 {
		cfg.Tools.CustomTimeoutSecs = 300
	}

	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = 300
	}

	if cfg.History.Path == "" {
		cfg.History.Path = history.DefaultPath(cfg.SkillsRoot())
	}
}

// SkillsRoot resolves the skills directory against the workspace root.
func (c *Config) SkillsRoot() string {
	root := c.Workspace.SkillsRoot
	if !filepath.IsAbs(root) {
		root = filepath.Join(c.Workspace.Root, root)
	}
	return root
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for name, secs := range map[string]int{
		"tools.structural_timeout_secs": c.Tools.StructuralTimeoutSecs,
		"tools.custom_timeout_secs":     c.Tools.CustomTimeoutSecs,
	} {
		if secs < minTimeoutSecs || secs > maxTimeoutSecs {
			return faults.Usagef("%s must be between %d and %d, got %d",
				name, minTimeoutSecs, maxTimeoutSecs, secs)
		}
	}

	if c.Cache.TTLSecs < 0 {
		return faults.Usagef("cache.ttl_secs must not be negative, got %d", c.Cache.TTLSecs)
	}

	return nil
}

// RunnerConfig converts the tool settings into the rule-execution shape
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		StructuralTool:    c.Tools.Structural,
		StructuralTimeout: time.Duration(c.Tools.StructuralTimeoutSecs) * time.Second,
		CustomTimeout:     time.Duration(c.Tools.CustomTimeoutSecs) * time.Second,
	}
}

// CacheTTL returns the tracked-file cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}
