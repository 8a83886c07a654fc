// Package inspect extracts structure from mapper interface sources and
// statement XML files using lightweight regular expressions. It is
// intentionally shallow (not a compiler) but good enough for mapping
// resolution and navigation; precise lookups can be layered on top through
// the language service.
package inspect

import (
	"os"
	"regexp"

	"github.com/Greenplumwine/mbnav/internal/debug"
)

var (
	// public interface UserMapper ...
	reInterfaceDecl = regexp.MustCompile(`(?m)^\s*(?:public\s+)?interface\s+[A-Za-z0-9_]+`)

	// @Mapper on its own line (optionally fully qualified)
	reMapperAnnotation = regexp.MustCompile(`(?m)^\s*@(?:org\.apache\.ibatis\.annotations\.)?Mapper\b`)

	// import org.apache.ibatis...; / import org.mybatis...;
	reFrameworkImport = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?org\.(?:apache\.ibatis|mybatis)\.`)
)

// IsMapperInterface reports whether the file looks like a data-access
// contract worth mapping: an interface declaration plus either a framework
// annotation or a framework import. Read failures classify as false; a
// heuristic, not a compiler check.
func IsMapperInterface(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		debug.LogResolve("classifier read failed for %s: %v\n", path, err)
		return false
	}
	return isMapperInterfaceContent(content)
}

func isMapperInterfaceContent(content []byte) bool {
	if !reInterfaceDecl.Match(content) {
		return false
	}
	return reMapperAnnotation.Match(content) || reFrameworkImport.Match(content)
}
