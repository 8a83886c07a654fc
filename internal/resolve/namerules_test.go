package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Greenplumwine/mbnav/internal/types"
)

func TestMatcherDefaultSuffixStripping(t *testing.T) {
	m := NewMatcher(nil, nil)

	tests := []struct {
		iface, stmt string
		want        bool
	}{
		{"UserMapper", "UserMapper", true},
		{"UserMapper", "User", true},
		{"UserDao", "User", true},
		{"UserRepository", "User", true},
		{"UserService", "User", true},
		{"User", "UserMapper", true},
		{"UserMapper", "OrderMapper", false},
		{"Mapper", "Mapper", true},
		// A bare suffix is a whole name, not a strippable suffix.
		{"Mapper", "", false},
	}
	for _, tt := range tests {
		got, _ := m.Match(tt.iface, tt.stmt)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.iface, tt.stmt)
	}
}

func TestMatcherRulePrecedence(t *testing.T) {
	rules := []types.NameMatchingRule{
		{Name: "disabled", Enabled: false, InterfacePattern: "*", StatementPattern: "Never"},
		{Name: "repo", Enabled: true, InterfacePattern: "*Mapper", StatementPattern: "${javaName}Repository"},
	}
	m := NewMatcher(rules, nil)

	ok, by := m.Match("UserMapper", "UserMapperRepository")
	assert.True(t, ok)
	assert.Equal(t, MatchedBy("repo"), by)

	// Disabled rule never fires even though its pattern matches everything.
	ok, by = m.Match("UserMapper", "Never")
	assert.False(t, ok)
	assert.Equal(t, MatchedByNone, by)

	// Default comparison still applies when no rule matches.
	ok, by = m.Match("UserMapper", "User")
	assert.True(t, ok)
	assert.Equal(t, MatchedByDefault, by)
}

func TestMatcherCustomSuffixes(t *testing.T) {
	m := NewMatcher(nil, []string{"Gateway"})

	ok, _ := m.Match("UserGateway", "User")
	assert.True(t, ok)

	// Custom suffixes replace the defaults rather than extending them.
	ok, _ = m.Match("UserMapper", "User")
	assert.False(t, ok)
}
