package similarity

import (
	"strings"
	"unicode"
)

func normalizeText(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// lcsRatio returns 2*LCS/(len(a)+len(b)); zero when either side is empty.
func lcsRatio[T comparable](a, b []T) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) < len(b) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return 2 * float64(prev[len(b)]) / float64(len(a)+len(b))
}

// TextRatio is the case-insensitive character-level LCS ratio of two strings.
func TextRatio(a, b string) float64 {
	return lcsRatio([]rune(normalizeText(a)), []rune(normalizeText(b)))
}

func contentTokens(text string) []string {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

func tagSet(tags []string) map[string]struct{} {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if normalized := normalizeText(tag); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func tagOverlap(left, right map[string]struct{}) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	intersection := 0
	for tag := range left {
		if _, ok := right[tag]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(max(len(left), len(right)))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
