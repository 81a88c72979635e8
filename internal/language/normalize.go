// Package language normalizes collector-supplied language tags so records
// tagged "en", "EN_us" and "en-GB" land in the same bucket.
package language

import "strings"

// NormalizeTag lowercases a BCP 47 style tag and uses "-" separators.
// It returns "" for blank tags or tags with non-letter subtags.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	subtags := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '_' })
	if len(subtags) == 0 {
		return ""
	}
	for _, subtag := range subtags {
		if !lettersOnly(subtag) {
			return ""
		}
	}
	return strings.Join(subtags, "-")
}

// Primary returns the primary subtag ("en" from "en-US"). Anything that is
// not a plausible ISO 639 code, such as "english", yields "".
func Primary(raw string) string {
	tag := NormalizeTag(raw)
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		tag = tag[:dash]
	}
	if len(tag) < 2 || len(tag) > 3 {
		return ""
	}
	return tag
}

func lettersOnly(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
