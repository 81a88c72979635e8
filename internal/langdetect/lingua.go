package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/language"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

// Unknown is the bucket for text too short or too ambiguous to classify.
const Unknown = "und"

const minLetters = 6

var (
	defaultOnce     sync.Once
	defaultDetector *Detector
)

// Detector wraps a lingua detector. It is safe for concurrent use.
type Detector struct {
	lingua lingua.LanguageDetector
}

// Default returns a process-wide detector over every language lingua knows.
// Models load lazily on first use.
func Default() *Detector {
	defaultOnce.Do(func() {
		defaultDetector = &Detector{
			lingua: lingua.NewLanguageDetectorBuilder().
				FromAllLanguages().
				Build(),
		}
	})
	return defaultDetector
}

// New builds a detector restricted to the given languages.
func New(languages ...lingua.Language) *Detector {
	if len(languages) < 2 {
		return Default()
	}
	return &Detector{
		lingua: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// DetectISO6391 returns the two-letter code for text, or "" when unsure.
func (d *Detector) DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	detected, exists := d.lingua.DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// Bucket names the language bucket a record is grouped in. A valid language
// the collector already set wins over detection; regional variants share
// their primary code's bucket.
func (d *Detector) Bucket(rec record.TextRecord) string {
	if code := language.Primary(rec.Language); code != "" {
		return code
	}
	if code := d.DetectISO6391(rec.FeatureText()); code != "" {
		return code
	}
	return Unknown
}

func DetectISO6391(text string) string {
	return Default().DetectISO6391(text)
}
