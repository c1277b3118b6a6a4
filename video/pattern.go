package video

import (
	"encoding/json"
	"path"
	"strings"
)

// Priority is the rank of the first scan pattern a file name matched. The
// zero value is the highest priority (index 0). Files that matched no pattern
// carry the Unmatched priority, which orders after every index.
type Priority struct {
	index   int
	matched bool
}

// Unmatched is the priority of a file that matched none of the patterns
var Unmatched = Priority{index: -1}

// PriorityAt returns the priority for the pattern at index i
func PriorityAt(i int) Priority {
	return Priority{index: i, matched: true}
}

// Index returns the pattern index and whether the priority refers to a match
func (p Priority) Index() (int, bool) {
	return p.index, p.matched
}

// Less orders matched priorities by index and puts Unmatched last
func (p Priority) Less(q Priority) bool {
	if p.matched != q.matched {
		return p.matched
	}
	return p.matched && p.index < q.index
}

// MarshalJSON writes the pattern index, or -1 for Unmatched
func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.matched {
		return []byte("-1"), nil
	}
	return json.Marshal(p.index)
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	if i < 0 {
		*p = Unmatched
		return nil
	}
	*p = PriorityAt(i)
	return nil
}

// matchGlob matches name against a shell glob, ignoring case. Malformed
// patterns never match.
func matchGlob(pattern, name string) bool {
	ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && ok
}

// MatchesAny reports whether name matches at least one pattern. An empty
// pattern list matches everything.
func MatchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchGlob(p, name) {
			return true
		}
	}
	return false
}

// PriorityOf returns the priority of the first pattern that matches name.
// The first match wins even if a later pattern is more specific. An empty
// pattern list yields priority 0; no match yields Unmatched.
func PriorityOf(name string, patterns []string) Priority {
	if len(patterns) == 0 {
		return PriorityAt(0)
	}
	for i, p := range patterns {
		if matchGlob(p, name) {
			return PriorityAt(i)
		}
	}
	return Unmatched
}
