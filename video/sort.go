package video

import (
	"sort"
	"strings"
)

// SortByPriority stably orders records by pattern priority (unmatched last),
// then matched before unmatched, then case-insensitive name. It only runs in
// pattern-priority mode with at least one pattern; otherwise discovery order
// is kept. Records themselves are never modified.
func SortByPriority(records []VideoRecord, mode ScanMode, patterns []string) {
	if mode != ScanModePatternPriority || len(patterns) == 0 {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]

		pa, pb := recordPriority(a), recordPriority(b)
		if pa.Less(pb) {
			return true
		}
		if pb.Less(pa) {
			return false
		}

		if a.Matched() != b.Matched() {
			return a.Matched()
		}

		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func recordPriority(r VideoRecord) Priority {
	if r.PatternPriority == nil {
		return Unmatched
	}
	return *r.PatternPriority
}
