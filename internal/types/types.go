// Package types holds the shared data model for the mapping resolution and
// navigation engine: positions, mapping pairs, name-matching rules, and the
// tunable constants the other packages agree on.
package types

// Position identifies where a method declaration or statement-id attribute
// begins inside a file. Line and Column are zero-based, matching the editor
// host's cursor coordinates.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Mapping is a resolved pairing between one mapper interface file and one
// statement file. Both paths are absolute.
type Mapping struct {
	InterfacePath string `json:"interfacePath"`
	StatementPath string `json:"statementPath"`
}

// NameMatchingRule pairs an interface filename glob with a statement filename
// pattern. StatementPattern may reference the interface base name (extension
// stripped) through the ${javaName} placeholder. Rules are ordered; the first
// enabled rule whose glob pair matches both filenames wins over the default
// suffix-stripping comparison.
type NameMatchingRule struct {
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	InterfacePattern string `json:"interfacePattern"`
	StatementPattern string `json:"statementPattern"`
	Description      string `json:"description,omitempty"`
}

// JavaNamePlaceholder is the token in a NameMatchingRule.StatementPattern
// replaced by the interface file's base name.
const JavaNamePlaceholder = "${javaName}"

// PathPriority steers candidate ordering during resolution. Priority
// fragments sort first and exclude fragments sort last; exclusion is soft,
// a de-prioritization rather than a filter.
type PathPriority struct {
	Enabled             bool     `json:"enabled"`
	PriorityDirectories []string `json:"priorityDirectories"`
	ExcludeDirectories  []string `json:"excludeDirectories"`
}

// Parameter is one formal parameter of a mapper method, optionally expanded
// with one level of field names for non-primitive types.
type Parameter struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Fields []string `json:"fields,omitempty"`
}

// JumpKind distinguishes the two navigation directions. The jump throttle
// keeps a separate bucket per kind.
type JumpKind int

const (
	// JumpToStatement navigates interface -> statement file.
	JumpToStatement JumpKind = iota
	// JumpToInterface navigates statement file -> interface.
	JumpToInterface
)

func (k JumpKind) String() string {
	switch k {
	case JumpToStatement:
		return "to-statement"
	case JumpToInterface:
		return "to-interface"
	default:
		return "unknown"
	}
}

// WindowPolicy is the editor window-reuse behavior applied by the jump
// executor.
type WindowPolicy string

const (
	WindowReuse       WindowPolicy = "reuse"
	WindowNeverSplit  WindowPolicy = "never-split"
	WindowAlwaysSplit WindowPolicy = "always-split"
)

// File extensions tracked by the engine.
const (
	InterfaceExt = ".java"
	StatementExt = ".xml"
)

// Engine-wide tunables. Overridable through configuration where a matching
// config field exists; these are the fallbacks.
const (
	// QuickCheckLimit caps enumeration for UI-triggered quick checks.
	QuickCheckLimit = 100

	// ScanBatchSize is how many candidate files a full-scan lookup
	// inspects between liveness checks.
	ScanBatchSize = 100

	// DefaultNavigationTimeoutMs bounds one whole navigation request.
	DefaultNavigationTimeoutMs = 5000

	// DefaultDebounceMs is the trailing-edge window for filesystem events.
	DefaultDebounceMs = 300

	// DefaultThrottleMs is the per-kind jump cooldown.
	DefaultThrottleMs = 800

	// DefaultMaxFileSize guards content reads against oversized files.
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// DefaultIgnoredSuffixes are stripped from both base names before the default
// filename comparison.
var DefaultIgnoredSuffixes = []string{"Mapper", "Dao", "Repository", "Service"}

// ConventionalStatementDirs are the path fragments that mark a directory as a
// conventional home for statement files.
var ConventionalStatementDirs = []string{"mapper", "mappers", "xml", "dao", "mybatis"}
