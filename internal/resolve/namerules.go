package resolve

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Greenplumwine/mbnav/internal/types"
)

// MatchedBy identifies which mechanism paired two filenames.
type MatchedBy string

const (
	// MatchedByDefault is the suffix-stripping comparison.
	MatchedByDefault MatchedBy = "default"
	// MatchedByNone means the pair does not match.
	MatchedByNone MatchedBy = ""
)

// Matcher decides whether an interface filename and a statement filename
// belong together. The ordered user rules are consulted first; the default
// suffix-stripping comparison only applies when no enabled rule matches the
// pair.
type Matcher struct {
	rules    []types.NameMatchingRule
	suffixes []string
}

// NewMatcher creates a matcher from the configured rules and ignored
// suffixes. Rules should already be validated; a glob error here simply
// fails that rule for the pair at hand.
func NewMatcher(rules []types.NameMatchingRule, suffixes []string) *Matcher {
	if len(suffixes) == 0 {
		suffixes = types.DefaultIgnoredSuffixes
	}
	return &Matcher{rules: rules, suffixes: suffixes}
}

// Match reports whether interfaceBase and statementBase (file names without
// extension) pair up, and which rule decided it. The first enabled rule
// whose glob pair matches both names wins over the default comparison.
func (m *Matcher) Match(interfaceBase, statementBase string) (bool, MatchedBy) {
	for _, rule := range m.rules {
		if !rule.Enabled {
			continue
		}
		ifaceOK, err := doublestar.Match(rule.InterfacePattern, interfaceBase)
		if err != nil || !ifaceOK {
			continue
		}
		pattern := strings.ReplaceAll(rule.StatementPattern, types.JavaNamePlaceholder, interfaceBase)
		stmtOK, err := doublestar.Match(pattern, statementBase)
		if err != nil {
			continue
		}
		if stmtOK {
			return true, MatchedBy(rule.Name)
		}
	}

	if m.stripSuffix(interfaceBase) == m.stripSuffix(statementBase) {
		return true, MatchedByDefault
	}
	return false, MatchedByNone
}

// stripSuffix removes the first matching ignored suffix, once.
func (m *Matcher) stripSuffix(name string) string {
	for _, suffix := range m.suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
