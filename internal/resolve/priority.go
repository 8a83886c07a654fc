package resolve

import (
	"sort"

	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// Sorter orders candidate statement files by the path-priority policy.
// Exclusion is soft: excluded fragments sort last but are never filtered
// out, so an excluded directory can still win when nothing else matches.
type Sorter struct {
	priority types.PathPriority
}

// NewSorter creates a sorter for the configured path-priority policy.
func NewSorter(priority types.PathPriority) *Sorter {
	return &Sorter{priority: priority}
}

// Sort returns a new slice ordered by: priority-directory hits first,
// excluded-directory hits last, then shallower paths, then lexicographic
// path. The lexicographic tail keeps equally-ranked duplicates (a known
// monorepo hazard) deterministic within one process.
func (s *Sorter) Sort(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := s.rank(out[i]), s.rank(out[j])
		if ri != rj {
			return ri < rj
		}
		di, dj := pathutil.Depth(out[i]), pathutil.Depth(out[j])
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	return out
}

// rank buckets a path: 0 priority, 1 neutral, 2 excluded. When a path hits
// both lists the exclusion wins; de-prioritizing is the stronger intent.
func (s *Sorter) rank(path string) int {
	if !s.priority.Enabled {
		return 1
	}
	for _, fragment := range s.priority.ExcludeDirectories {
		if pathutil.ContainsFragment(path, fragment) {
			return 2
		}
	}
	for _, fragment := range s.priority.PriorityDirectories {
		if pathutil.ContainsFragment(path, fragment) {
			return 0
		}
	}
	return 1
}
