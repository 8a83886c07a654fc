package inspect

import (
	"os"
	"regexp"
	"strings"

	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/types"
)

var (
	// <mapper namespace="com.acme.UserMapper">, single or double quotes,
	// namespace attribute in any position on the root element.
	reXMLNamespace = regexp.MustCompile(`<mapper\b[^>]*?\bnamespace\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	// <select id="findById" ...> and the other statement-bearing tags.
	reStatementTag = regexp.MustCompile(`<(?:select|insert|update|delete|sql|resultMap)\b[^>]*?\bid\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// ParseStatementNamespace extracts the root element's namespace attribute.
// Returns "" without error when the attribute is absent; absence is a
// verification signal, not a failure.
func ParseStatementNamespace(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewParseError("parse statement namespace", path, err)
	}
	if m := reXMLNamespace.FindSubmatch(content); m != nil {
		if len(m[1]) > 0 {
			return string(m[1]), nil
		}
		return string(m[2]), nil
	}
	return "", nil
}

// FindStatementPosition scans for a statement tag whose id attribute equals
// id, accepting both quote styles. The returned position points at the
// identifier token itself, falling back to column 0 of the matching line.
func FindStatementPosition(path, id string) (*types.Position, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError("find statement position", path, err)
	}

	idRe, err := regexp.Compile(`\bid\s*=\s*("` + regexp.QuoteMeta(id) + `"|'` + regexp.QuoteMeta(id) + `')`)
	if err != nil {
		return nil, errors.NewParseError("find statement position", path, err)
	}

	for i, line := range strings.Split(string(content), "\n") {
		loc := idRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		// loc[1] is just past the closing quote; the identifier starts
		// one quote-width plus its own length before that.
		col := loc[1] - 1 - len(id)
		if col < 0 {
			col = 0
		}
		return &types.Position{Line: i, Column: col}, nil
	}
	return nil, nil
}

// StatementIDs lists the id attributes of all statement-bearing tags, in
// file order.
func StatementIDs(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError("list statement ids", path, err)
	}

	matches := reStatementTag.FindAllSubmatch(content, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m[1]) > 0 {
			ids = append(ids, string(m[1]))
		} else if len(m[2]) > 0 {
			ids = append(ids, string(m[2]))
		}
	}
	return ids, nil
}
