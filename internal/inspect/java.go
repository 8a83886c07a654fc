package inspect

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// Examples matched by the declaration regexes:
//
//	package com.acme.user;
//
//	public interface UserMapper {
//	    /**
//	     * @param id user id
//	     */
//	    User findById(@Param("id") Long id);
//	    List<User> findByCondition(UserQuery query);
//	}

var (
	// package com.acme.user;
	reJavaPkg = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z0-9_.]+)\s*;`)

	// @Param("name")
	reParamAnnotation = regexp.MustCompile(`@Param\s*\(\s*"([^"]*)"\s*\)`)

	// * @param id the user id
	reDocParam = regexp.MustCompile(`@param\s+(\w+)`)

	// private Long id;  (field declarations require a leading modifier so
	// local variables inside default methods do not match)
	reJavaField = regexp.MustCompile(`^\s*(?:(?:private|protected|public|final|transient|volatile)\s+)+[\w$.<>\[\],?\s]*?(\w+)\s*(?:=[^;]*)?;`)
)

// methodModifiers is the strict, modifier-aware prefix for a method
// declaration line.
const methodModifiers = `^\s*(?:(?:public|protected|private|abstract|default|static|final|synchronized)\s+)*`

// ParseNamespace returns the fully qualified name a statement file is
// expected to declare for this interface file: the package declaration
// dot-joined with the simple file name. Files without a package declaration
// yield the simple name alone.
func ParseNamespace(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewParseError("parse namespace", path, err)
	}
	simple := pathutil.BaseName(path)
	if m := reJavaPkg.FindSubmatch(content); m != nil {
		return string(m[1]) + "." + simple, nil
	}
	return simple, nil
}

// PackageOf extracts the package declaration, or "" when absent.
func PackageOf(content []byte) string {
	if m := reJavaPkg.FindSubmatch(content); m != nil {
		return string(m[1])
	}
	return ""
}

// FindMethodPosition locates a method declaration inside an interface file.
// A strict modifier-aware pattern is tried first, then a looser
// "name immediately followed by (" pattern to tolerate unusual formatting.
// Blank lines and lines beginning a comment are skipped. The returned
// position points at the method name token, falling back to column 0 of the
// matching line.
func FindMethodPosition(path, methodName string) (*types.Position, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError("find method position", path, err)
	}

	nameRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(methodName) + `\s*\(`)
	if err != nil {
		return nil, errors.NewParseError("find method position", path, err)
	}
	strictRe, err := regexp.Compile(methodModifiers + `[\w$.<>\[\],?\s]+?\b` + regexp.QuoteMeta(methodName) + `\s*\(`)
	if err != nil {
		return nil, errors.NewParseError("find method position", path, err)
	}

	lines := strings.Split(string(content), "\n")

	if pos := scanLines(lines, methodName, nameRe, strictRe.MatchString); pos != nil {
		return pos, nil
	}
	// Loose pass: any non-comment line carrying name(, regardless of what
	// precedes it on the line.
	if pos := scanLines(lines, methodName, nameRe, nameRe.MatchString); pos != nil {
		return pos, nil
	}
	return nil, nil
}

func scanLines(lines []string, token string, tokenRe *regexp.Regexp, match func(string) bool) *types.Position {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		if !match(line) {
			continue
		}
		if loc := tokenRe.FindStringIndex(line); loc != nil {
			return &types.Position{Line: i, Column: loc[0]}
		}
		return &types.Position{Line: i, Column: 0}
	}
	return nil
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

// TypeFileFinder locates the declaring .java file for a simple type name.
// nearDir is the directory of the referencing file, preferred when the same
// type name exists in several packages. Returns "" when unknown.
type TypeFileFinder func(typeName, nearDir string) string

// ExtractParameters locates methodName's signature and parses its formal
// parameter list. Binding names come from, in order of precedence: the
// @Param annotation, a @param tag in the preceding doc comment block
// (positional), the parsed identifier. Non-primitive parameter types are
// expanded with one level of field names from the type's declaring file when
// the finder can locate it; generic wrappers unwrap to their first type
// argument and arrays to their element type first.
func ExtractParameters(path, methodName string, finder TypeFileFinder) ([]types.Parameter, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError("extract parameters", path, err)
	}

	src := string(content)
	declOffset := findDeclarationOffset(src, methodName)
	if declOffset < 0 {
		return nil, nil
	}

	open := strings.Index(src[declOffset:], "(")
	if open < 0 {
		return nil, nil
	}
	open += declOffset
	closing := matchingParen(src, open)
	if closing < 0 {
		return nil, nil
	}

	params := parseParameterList(src[open+1 : closing])

	// Doc-comment @param names override parsed identifiers positionally;
	// handles generated or obfuscated parameter names.
	docNames := docParamNames(src, declOffset)
	for i := range params {
		if params[i].annotated {
			continue
		}
		if i < len(docNames) {
			params[i].param.Name = docNames[i]
		}
	}

	out := make([]types.Parameter, 0, len(params))
	for _, p := range params {
		param := p.param
		elem := UnwrapType(param.Type)
		if finder != nil && !IsPrimitiveType(elem) {
			if declFile := finder(elem, filepath.Dir(path)); declFile != "" {
				if fields, err := FieldNames(declFile); err == nil {
					param.Fields = fields
				}
			}
		}
		out = append(out, param)
	}
	return out, nil
}

// findDeclarationOffset returns the byte offset of the first occurrence of
// methodName( on a non-comment line, or -1.
func findDeclarationOffset(src, methodName string) int {
	nameRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(methodName) + `\s*\(`)
	if err != nil {
		return -1
	}
	offset := 0
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !isCommentLine(trimmed) {
			if loc := nameRe.FindStringIndex(line); loc != nil {
				return offset + loc[0]
			}
		}
		offset += len(line) + 1
	}
	return -1
}

// matchingParen returns the index of the parenthesis closing the one at
// open, tolerating nested parens from annotations like @Param("x").
func matchingParen(src string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(src); i++ {
		c := src[i]
		if inString {
			if c == '"' && src[i-1] != '\\' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type parsedParam struct {
	param     types.Parameter
	annotated bool // name pinned by @Param
}

func parseParameterList(raw string) []parsedParam {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var params []parsedParam
	for _, piece := range splitTopLevel(raw) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		var bindName string
		if m := reParamAnnotation.FindStringSubmatch(piece); m != nil {
			bindName = m[1]
		}
		// Drop all annotations before tokenizing.
		piece = reAnnotation.ReplaceAllString(piece, "")

		tokens := strings.Fields(piece)
		// Discard the final modifier; it is not part of the type.
		if len(tokens) > 0 && tokens[0] == "final" {
			tokens = tokens[1:]
		}
		if len(tokens) == 0 {
			continue
		}

		var typ, name string
		if len(tokens) == 1 {
			typ = tokens[0]
		} else {
			typ = strings.Join(tokens[:len(tokens)-1], " ")
			name = tokens[len(tokens)-1]
		}

		p := parsedParam{param: types.Parameter{Name: name, Type: typ}}
		if bindName != "" {
			p.param.Name = bindName
			p.annotated = true
		}
		params = append(params, p)
	}
	return params
}

// @Param("x"), @NotNull, @Valid: any annotation with optional arguments.
var reAnnotation = regexp.MustCompile(`@\w+(?:\s*\([^)]*\))?\s*`)

// splitTopLevel splits a parameter list at commas that are not nested inside
// generics, parens, or brackets.
func splitTopLevel(raw string) []string {
	var pieces []string
	depth := 0
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				pieces = append(pieces, raw[start:i])
				start = i + 1
			}
		}
	}
	pieces = append(pieces, raw[start:])
	return pieces
}

// docParamNames collects @param names from the doc comment block immediately
// preceding the declaration at declOffset, skipping annotation lines between
// the comment and the signature.
func docParamNames(src string, declOffset int) []string {
	lines := strings.Split(src[:declOffset], "\n")
	end := -1
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "@") {
			continue // blank or annotation between doc block and signature
		}
		if strings.HasSuffix(trimmed, "*/") {
			end = i
		}
		break
	}
	if end < 0 {
		return nil
	}

	start := -1
	for i := end; i >= 0; i-- {
		if strings.Contains(lines[i], "/**") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var names []string
	for _, line := range lines[start : end+1] {
		if m := reDocParam.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// FieldNames extracts one level of field names from a type's declaring file.
// Static members are skipped; the result feeds dotted-path suggestions.
func FieldNames(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError("extract fields", path, err)
	}

	var fields []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		if strings.Contains(line, "static") || strings.Contains(line, "(") {
			continue
		}
		if m := reJavaField.FindStringSubmatch(line); m != nil {
			fields = append(fields, m[1])
		}
	}
	return fields, nil
}

// UnwrapType reduces a declared parameter type to the element type used for
// field lookup: arrays and varargs unwrap to their element type, generic
// wrappers to their first type argument, and package qualifiers are dropped.
func UnwrapType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "...")
	for strings.HasSuffix(t, "[]") {
		t = strings.TrimSuffix(t, "[]")
	}
	if idx := strings.Index(t, "<"); idx >= 0 {
		if end := strings.LastIndex(t, ">"); end > idx {
			first := splitTopLevel(t[idx+1 : end])[0]
			return UnwrapType(first)
		}
		t = t[:idx]
	}
	if idx := strings.LastIndex(t, "."); idx >= 0 {
		t = t[idx+1:]
	}
	return strings.TrimSpace(t)
}

var primitiveTypes = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
	"Boolean": true, "Byte": true, "Character": true, "Short": true,
	"Integer": true, "Long": true, "Float": true, "Double": true,
	"String": true, "Object": true, "Number": true, "BigDecimal": true,
	"BigInteger": true, "Date": true, "LocalDate": true, "LocalTime": true,
	"LocalDateTime": true, "Instant": true, "Timestamp": true, "?": true,
}

// IsPrimitiveType reports whether t is a primitive, boxed, or well-known
// value type whose fields are not worth expanding.
func IsPrimitiveType(t string) bool {
	return primitiveTypes[t]
}
