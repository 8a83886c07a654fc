package resolve

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

const (
	suggestionThreshold = 0.75
	maxSuggestions      = 3
)

// Suggest ranks candidate statement files by name similarity to the failed
// lookup and returns up to three close matches for the not-found error.
func Suggest(base string, candidates []string) []string {
	type scored struct {
		path  string
		score float32
	}
	var near []scored
	for _, candidate := range candidates {
		score, err := edlib.StringsSimilarity(base, pathutil.BaseName(candidate), edlib.JaroWinkler)
		if err != nil || score < suggestionThreshold {
			continue
		}
		near = append(near, scored{path: candidate, score: score})
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].score > near[j].score })

	if len(near) > maxSuggestions {
		near = near[:maxSuggestions]
	}
	out := make([]string, 0, len(near))
	for _, s := range near {
		out = append(out, s.path)
	}
	return out
}

// SuggestForStatement is Suggest with the statement-side ignored-suffix
// variants of the base name also considered, so "UserMapper" surfaces
// "User.xml" style near misses.
func SuggestForStatement(interfaceBase string, candidates []string, suffixes []string) []string {
	if len(suffixes) == 0 {
		suffixes = types.DefaultIgnoredSuffixes
	}
	seen := map[string]bool{}
	var merged []string
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
	}
	add(Suggest(interfaceBase, candidates))
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(interfaceBase, suffix) && len(interfaceBase) > len(suffix) {
			add(Suggest(strings.TrimSuffix(interfaceBase, suffix), candidates))
			break
		}
	}
	if len(merged) > maxSuggestions {
		merged = merged[:maxSuggestions]
	}
	return merged
}
