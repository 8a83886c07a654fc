// Package langsvc offers syntax-aware position lookup backed by tree-sitter.
// It is an optional refinement over the regex-based locator: construction or
// parse failures degrade to a nil/absent result and never fail a navigation.
package langsvc

import (
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/types"
)

const javaMethodQuery = `
(method_declaration
  name: (identifier) @method.name) @method
`

// JavaLocator finds method declaration positions in mapper interface
// sources using a real Java grammar.
type JavaLocator struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
}

// NewJavaLocator sets up the Java parser and query. Returns nil when the
// grammar cannot be loaded; callers treat a nil locator as "use the regex
// fallback".
func NewJavaLocator() *JavaLocator {
	language := tree_sitter.NewLanguage(tree_sitter_java.Language())

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		debug.LogNav("java grammar unavailable: %v\n", err)
		parser.Close()
		return nil
	}

	query, err := tree_sitter.NewQuery(language, javaMethodQuery)
	if err != nil {
		debug.LogNav("java method query failed to compile: %v\n", err)
		parser.Close()
		return nil
	}

	return &JavaLocator{parser: parser, query: query}
}

// MethodPosition locates the declaration of methodName in content. The
// returned position points at the method name token. ok is false when the
// method is absent or the source does not parse.
func (l *JavaLocator) MethodPosition(content []byte, methodName string) (types.Position, bool) {
	if l == nil {
		return types.Position{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tree := l.parser.Parse(content, nil)
	if tree == nil {
		return types.Position{}, false
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(l.query, tree.RootNode(), content)

	captureNames := l.query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, c := range match.Captures {
			if !strings.HasSuffix(captureNames[c.Index], ".name") {
				continue
			}
			start := int(c.Node.StartByte())
			end := int(c.Node.EndByte())
			if start < 0 || end > len(content) || start >= end {
				continue
			}
			if string(content[start:end]) != methodName {
				continue
			}
			pos := c.Node.StartPosition()
			return types.Position{Line: int(pos.Row), Column: int(pos.Column)}, true
		}
	}

	return types.Position{}, false
}

// Close releases the parser and query. Safe on nil.
func (l *JavaLocator) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.query != nil {
		l.query.Close()
		l.query = nil
	}
	if l.parser != nil {
		l.parser.Close()
		l.parser = nil
	}
}
