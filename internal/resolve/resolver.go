// Package resolve implements the cascading resolution algorithm pairing a
// mapper interface file with its statement file, and the narrower reverse
// direction. Each strategy returns an optional result and the first hit
// short-circuits the rest; a full resolution failure is an answer ("no
// statement file associated"), not an error.
package resolve

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/inspect"
	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// CandidateProvider lazily supplies the candidate statement files for the
// scan-based strategies. The quick-path and custom-directory strategies
// never invoke it.
type CandidateProvider func(ctx context.Context) ([]string, error)

// Resolver runs the resolution cascade.
type Resolver struct {
	cfg     *config.Config
	matcher *Matcher
	sorter  *Sorter

	// exists is swappable so tests can fake the filesystem for the
	// quick-path strategy.
	exists func(string) bool
}

// New creates a resolver over the given configuration.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg:     cfg,
		matcher: NewMatcher(cfg.Resolution.Rules, cfg.Resolution.IgnoredSuffixes),
		sorter:  NewSorter(cfg.Resolution.PathPriority),
		exists:  fileExists,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Resolve runs the full cascade for interfacePath. Returns "" when no
// strategy produces a verified-or-plausible match.
func (r *Resolver) Resolve(ctx context.Context, interfacePath string, provide CandidateProvider) (string, error) {
	// Strategy 1: conventional co-located paths, existence checks only.
	if hit := r.QuickPath(interfacePath); hit != "" {
		debug.LogResolve("quick-path hit %s -> %s\n", interfacePath, hit)
		return hit, nil
	}

	expected := r.expectedNamespace(interfacePath)
	base := pathutil.BaseName(interfacePath)

	// Strategy 2: user-declared custom statement directories.
	if hit := r.customDirs(base, expected); hit != "" {
		debug.LogResolve("custom-dir hit %s -> %s\n", interfacePath, hit)
		return hit, nil
	}

	if provide == nil {
		return "", nil
	}
	candidates, err := provide(ctx)
	if err != nil {
		return "", err
	}

	// Strategy 3: conventional-directory candidates under priority order.
	conventional, rest := splitConventional(candidates)
	hit, err := r.matchAgainst(ctx, r.sorter.Sort(conventional), base, expected)
	if err != nil {
		return "", err
	}
	if hit != "" {
		debug.LogResolve("priority-dir hit %s -> %s\n", interfacePath, hit)
		return hit, nil
	}

	// Strategy 4: candidates under the interface's package path.
	scoped, remaining := splitByPackagePath(rest, expected)
	hit, err = r.matchAgainst(ctx, r.sorter.Sort(scoped), base, expected)
	if err != nil {
		return "", err
	}
	if hit != "" {
		debug.LogResolve("package-path hit %s -> %s\n", interfacePath, hit)
		return hit, nil
	}

	// Strategy 5: whatever is left.
	hit, err = r.matchAgainst(ctx, r.sorter.Sort(remaining), base, expected)
	if err != nil {
		return "", err
	}
	if hit != "" {
		debug.LogResolve("fallback hit %s -> %s\n", interfacePath, hit)
		return hit, nil
	}

	return "", nil
}

// QuickPath checks the fixed list of conventional co-located paths and
// returns the first that exists on disk. Never inspects file content and
// never scans a directory; the dominant case in standard build layouts.
func (r *Resolver) QuickPath(interfacePath string) string {
	for _, candidate := range r.quickPathCandidates(interfacePath) {
		if r.exists(candidate) {
			return candidate
		}
	}
	return ""
}

func (r *Resolver) quickPathCandidates(interfacePath string) []string {
	dir := filepath.Dir(interfacePath)
	xml := pathutil.BaseName(interfacePath) + types.StatementExt

	candidates := []string{
		filepath.Join(dir, xml),
		filepath.Join(dir, "mapper", xml),
	}

	// Maven/Gradle layout: …/src/main/java/… -> …/src/main/resources/…
	slash := filepath.ToSlash(interfacePath)
	if idx := strings.Index(slash, "/src/main/java/"); idx >= 0 {
		resRoot := filepath.FromSlash(slash[:idx] + "/src/main/resources")
		pkgRel := filepath.Dir(filepath.FromSlash(slash[idx+len("/src/main/java/"):]))
		candidates = append(candidates,
			filepath.Join(resRoot, pkgRel, xml),
			filepath.Join(resRoot, "mapper", xml),
			filepath.Join(resRoot, "xml", xml),
			filepath.Join(resRoot, xml),
			filepath.Join(resRoot, "mapper", pkgRel, xml),
		)
	}

	// Ancestor resources directories, walking up to the project root.
	root := filepath.Clean(r.cfg.Project.Root)
	for anc := dir; strings.HasPrefix(anc, root); {
		res := filepath.Join(anc, "resources")
		candidates = append(candidates,
			filepath.Join(res, "mapper", xml),
			filepath.Join(res, xml),
		)
		parent := filepath.Dir(anc)
		if parent == anc {
			break
		}
		anc = parent
	}

	// Project-root xml directory.
	candidates = append(candidates, filepath.Join(root, "xml", xml))

	return candidates
}

// customDirs checks each configured custom statement directory for a
// same-named file, accepting it unless it carries a disagreeing namespace.
func (r *Resolver) customDirs(base, expected string) string {
	for _, dir := range r.cfg.Resolution.CustomStatementDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.cfg.Project.Root, dir)
		}
		candidate := filepath.Join(dir, base+types.StatementExt)
		if r.exists(candidate) && r.namespaceAccepts(candidate, expected) {
			return candidate
		}
	}
	return ""
}

// matchAgainst applies the filename rules and the namespace check to an
// already-sorted candidate list. Candidates are inspected in batches with a
// liveness check between them, so the deadline also bites mid-scan when the
// namespace checks are reading file content.
func (r *Resolver) matchAgainst(ctx context.Context, sorted []string, base, expected string) (string, error) {
	for i, candidate := range sorted {
		if i%types.ScanBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		matched, _ := r.matcher.Match(base, pathutil.BaseName(candidate))
		if !matched {
			continue
		}
		if r.namespaceAccepts(candidate, expected) {
			return candidate, nil
		}
		debug.LogResolve("namespace mismatch rejected %s (want %s)\n", candidate, expected)
	}
	return "", nil
}

// namespaceAccepts verifies a candidate against the expected fully qualified
// name. Absence of a namespace is acceptance; a present-but-different
// namespace rejects; an unreadable candidate rejects and the cascade
// continues with the remaining candidates.
func (r *Resolver) namespaceAccepts(statementPath, expected string) bool {
	ns, err := inspect.ParseStatementNamespace(statementPath)
	if err != nil {
		debug.LogResolve("namespace parse failed for %s: %v\n", statementPath, err)
		return false
	}
	return ns == "" || expected == "" || ns == expected
}

func (r *Resolver) expectedNamespace(interfacePath string) string {
	ns, err := inspect.ParseNamespace(interfacePath)
	if err != nil {
		debug.LogResolve("namespace parse failed for %s: %v\n", interfacePath, err)
		return ""
	}
	return ns
}

// splitConventional partitions candidates by whether a path segment names a
// conventional statement directory.
func splitConventional(candidates []string) (conventional, rest []string) {
	for _, c := range candidates {
		if inConventionalDir(c) {
			conventional = append(conventional, c)
		} else {
			rest = append(rest, c)
		}
	}
	return conventional, rest
}

func inConventionalDir(path string) bool {
	for _, fragment := range types.ConventionalStatementDirs {
		if pathutil.ContainsFragment(filepath.Dir(path), fragment) {
			return true
		}
	}
	return false
}

// splitByPackagePath partitions candidates by whether their path contains
// the interface's package translated to a path fragment.
func splitByPackagePath(candidates []string, expected string) (scoped, remaining []string) {
	pkgPath := packagePathOf(expected)
	if pkgPath == "" {
		return nil, candidates
	}
	needle := "/" + pkgPath + "/"
	for _, c := range candidates {
		if strings.Contains(filepath.ToSlash(c), needle) {
			scoped = append(scoped, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	return scoped, remaining
}

// packagePathOf turns "com.x.UserMapper" into "com/x".
func packagePathOf(expected string) string {
	idx := strings.LastIndex(expected, ".")
	if idx <= 0 {
		return ""
	}
	return strings.ReplaceAll(expected[:idx], ".", "/")
}

// ResolveReverse finds the interface file owning a statement file: parse the
// statement namespace, take its simple class name, and search interface
// files for a declaration whose package + simple name equals the namespace.
// A dotless or absent namespace matches by filename alone.
func (r *Resolver) ResolveReverse(ctx context.Context, statementPath string, provide CandidateProvider) (string, error) {
	ns, err := inspect.ParseStatementNamespace(statementPath)
	if err != nil {
		debug.LogResolve("reverse namespace parse failed for %s: %v\n", statementPath, err)
		ns = ""
	}

	simple := ns
	verifyPackage := false
	if idx := strings.LastIndex(ns, "."); idx >= 0 {
		simple = ns[idx+1:]
		verifyPackage = true
	}
	if simple == "" {
		simple = pathutil.BaseName(statementPath)
	}

	if provide == nil {
		return "", nil
	}
	candidates, err := provide(ctx)
	if err != nil {
		return "", err
	}

	stmtBase := pathutil.BaseName(statementPath)
	var byName string
	for i, candidate := range candidates {
		if i%types.ScanBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		base := pathutil.BaseName(candidate)
		if base == simple {
			if !verifyPackage {
				return candidate, nil
			}
			candidateNS, err := inspect.ParseNamespace(candidate)
			if err == nil && candidateNS == ns {
				return candidate, nil
			}
			continue
		}
		if byName == "" {
			if matched, _ := r.matcher.Match(base, stmtBase); matched {
				byName = candidate
			}
		}
	}

	// Namespace never matched; fall back to the filename pairing when the
	// namespace gave us nothing to verify against.
	if !verifyPackage && byName != "" {
		return byName, nil
	}
	return "", nil
}
