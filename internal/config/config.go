package config

import (
	"os"

	"github.com/Greenplumwine/mbnav/internal/types"
)

// Config is the complete engine configuration. Loaded from .mbnav.kdl with a
// global base in the user's home directory; CLI flags override on top.
type Config struct {
	Version    int
	Project    Project
	Scan       Scan
	Watch      Watch
	Navigation Navigation
	Resolution Resolution
	Exclude    []string
}

type Project struct {
	Root string
	Name string
}

type Scan struct {
	MaxFileSize     int64
	QuickCheckLimit int  // result cap for UI-triggered quick checks
	IncludeTestDirs bool // scan src/test trees too
}

type Watch struct {
	Enabled    bool
	DebounceMs int // trailing-edge window for file change events
}

type Navigation struct {
	TimeoutMs    int // hard deadline for one navigation request
	ThrottleMs   int // per-kind jump cooldown
	WindowPolicy types.WindowPolicy
}

type Resolution struct {
	// CustomStatementDirs are user-declared directories checked for a
	// same-named statement file before any workspace scan.
	CustomStatementDirs []string
	Rules               []types.NameMatchingRule
	IgnoredSuffixes     []string
	PathPriority        types.PathPriority
}

// Load reads configuration for the given project root, merging a global base
// config from the home directory under the project-specific one.
func Load(rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	projectConfig, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cfg := Default()
	cfg.Project.Root = searchDir
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Scan: Scan{
			MaxFileSize:     types.DefaultMaxFileSize,
			QuickCheckLimit: types.QuickCheckLimit,
			IncludeTestDirs: false,
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: types.DefaultDebounceMs,
		},
		Navigation: Navigation{
			TimeoutMs:    types.DefaultNavigationTimeoutMs,
			ThrottleMs:   types.DefaultThrottleMs,
			WindowPolicy: types.WindowReuse,
		},
		Resolution: Resolution{
			IgnoredSuffixes: append([]string(nil), types.DefaultIgnoredSuffixes...),
			PathPriority: types.PathPriority{
				Enabled: true,
			},
		},
		Exclude: DefaultExcludes(),
	}
}

// DefaultExcludes lists the directories never worth scanning: VCS metadata,
// build output, dependency trees, and test sources (the latter re-included
// through scan.include_test_dirs).
func DefaultExcludes() []string {
	return []string{
		"**/.git/**",
		"**/.*/**",
		"**/node_modules/**",
		"**/target/**",
		"**/build/**",
		"**/out/**",
		"**/bin/**",
		"**/dist/**",
		"**/src/test/**",
	}
}

// mergeConfigs merges a base config with a project config. Project settings
// take precedence; exclusions are combined.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		excludeMap := make(map[string]bool)
		for _, pattern := range base.Exclude {
			excludeMap[pattern] = true
		}
		for _, pattern := range project.Exclude {
			excludeMap[pattern] = true
		}
		merged.Exclude = make([]string, 0, len(excludeMap))
		for pattern := range excludeMap {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	// Global name rules apply after project rules so project-specific
	// mappings win on order.
	if len(base.Resolution.Rules) > 0 {
		merged.Resolution.Rules = append(append([]types.NameMatchingRule(nil),
			project.Resolution.Rules...), base.Resolution.Rules...)
	}

	return &merged
}
