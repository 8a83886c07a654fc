package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/types"
)

// Validator checks configuration values and applies defaults. Malformed
// name-matching rules are dropped, not fatal: each produces one warning and
// resolution continues with the remaining rules.
type Validator struct{}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults normalizes cfg in place and returns the warnings
// produced while doing so. The only hard error is a missing project root.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) ([]string, error) {
	if cfg.Project.Root == "" {
		return nil, errors.NewConfigError("project.root", "", fmt.Errorf("project root is required"))
	}
	if !filepath.IsAbs(cfg.Project.Root) {
		abs, err := filepath.Abs(cfg.Project.Root)
		if err != nil {
			return nil, errors.NewConfigError("project.root", cfg.Project.Root, err)
		}
		cfg.Project.Root = abs
	}

	var warnings []string

	if cfg.Scan.MaxFileSize <= 0 {
		cfg.Scan.MaxFileSize = types.DefaultMaxFileSize
	}
	if cfg.Scan.QuickCheckLimit <= 0 {
		cfg.Scan.QuickCheckLimit = types.QuickCheckLimit
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = types.DefaultDebounceMs
	}
	if cfg.Navigation.TimeoutMs <= 0 {
		cfg.Navigation.TimeoutMs = types.DefaultNavigationTimeoutMs
	}
	if cfg.Navigation.ThrottleMs <= 0 {
		cfg.Navigation.ThrottleMs = types.DefaultThrottleMs
	}

	switch cfg.Navigation.WindowPolicy {
	case types.WindowReuse, types.WindowNeverSplit, types.WindowAlwaysSplit:
	case "":
		cfg.Navigation.WindowPolicy = types.WindowReuse
	default:
		warnings = append(warnings, fmt.Sprintf(
			"unknown window_policy %q, using %q", cfg.Navigation.WindowPolicy, types.WindowReuse))
		cfg.Navigation.WindowPolicy = types.WindowReuse
	}

	if len(cfg.Resolution.IgnoredSuffixes) == 0 {
		cfg.Resolution.IgnoredSuffixes = append([]string(nil), types.DefaultIgnoredSuffixes...)
	}

	cfg.Resolution.Rules, warnings = v.validateRules(cfg.Resolution.Rules, warnings)

	return warnings, nil
}

// validateRules drops rules whose globs cannot compile or whose statement
// pattern would never reference a concrete name.
func (v *Validator) validateRules(rules []types.NameMatchingRule, warnings []string) ([]types.NameMatchingRule, []string) {
	valid := rules[:0]
	for _, rule := range rules {
		if err := checkRule(rule); err != nil {
			warnings = append(warnings, errors.NewConfigError("resolution.rules", rule.Name, err).Error())
			continue
		}
		valid = append(valid, rule)
	}
	return valid, warnings
}

func checkRule(rule types.NameMatchingRule) error {
	if rule.InterfacePattern == "" || rule.StatementPattern == "" {
		return fmt.Errorf("interface_pattern and statement_pattern are required")
	}
	if !doublestar.ValidatePattern(rule.InterfacePattern) {
		return fmt.Errorf("invalid interface_pattern glob %q", rule.InterfacePattern)
	}
	// Validate the statement glob with the placeholder substituted; the raw
	// pattern may not be a valid glob until ${javaName} is filled in.
	probe := strings.ReplaceAll(rule.StatementPattern, types.JavaNamePlaceholder, "Probe")
	if !doublestar.ValidatePattern(probe) {
		return fmt.Errorf("invalid statement_pattern glob %q", rule.StatementPattern)
	}
	return nil
}
