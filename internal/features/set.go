package features

import (
	"encoding/json"
	"sort"
)

// Set is a set of normalized terms (entities or keywords).
type Set map[string]struct{}

func NewSet(items ...string) Set {
	set := make(Set, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

func (s Set) Add(item string) {
	if item == "" {
		return
	}
	s[item] = struct{}{}
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order so persisted output is stable.
func (s Set) Sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	sorted := s.Sorted()
	if sorted == nil {
		sorted = []string{}
	}
	return json.Marshal(sorted)
}

func (s *Set) UnmarshalJSON(raw []byte) error {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*s = NewSet(items...)
	return nil
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// IntersectionSize counts members present in both sets.
func IntersectionSize(a, b Set) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	count := 0
	for item := range small {
		if _, ok := large[item]; ok {
			count++
		}
	}
	return count
}

// Jaccard is |A∩B| / |A∪B|, zero when either side is empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := IntersectionSize(a, b)
	if intersection == 0 {
		return 0
	}
	union := len(a) + len(b) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// OverlapRatio is |A∩B| / max(|A|, |B|, 1).
func OverlapRatio(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	denominator := max(len(a), len(b), 1)
	return float64(IntersectionSize(a, b)) / float64(denominator)
}
