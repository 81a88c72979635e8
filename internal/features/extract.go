package features

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const DefaultMinKeywordLength = 4

var (
	organizations = []string{
		"openai", "anthropic", "google", "microsoft", "apple", "meta", "amazon", "nvidia",
		"intel", "amd", "ibm", "oracle", "github", "gitlab", "mozilla", "canva", "adobe",
		"netflix", "tesla", "samsung", "huawei", "alibaba", "tencent", "cloudflare",
		"hashicorp", "red hat", "jetbrains", "deepmind", "hugging face", "serif",
	}
	frameworks = []string{
		"react", "vue", "angular", "svelte", "django", "flask", "fastapi", "rails",
		"spring boot", "kubernetes", "docker", "terraform", "tensorflow", "pytorch",
		"langchain", "node.js", "next.js", "deno", "llvm", "webassembly", "postgresql",
		"postgres", "redis", "kafka", "linux", "git", "nginx", "htmx",
	}
	languages = []string{
		"python", "rust", "javascript", "typescript", "java", "kotlin", "swift", "ruby",
		"php", "haskell", "elixir", "scala", "zig", "golang", "lua", "ocaml", "clojure",
	}
	namedOrgs = []string{
		"linux foundation", "apache software foundation", "mozilla foundation",
		"python software foundation", "rust foundation", "open source initiative",
		"cncf", "w3c", "ietf", "eff", "nasa", "european union", "fsf",
	}
	products = []string{
		"chatgpt", "gpt-4o", "gpt-4", "gpt-5", "claude", "gemini", "copilot", "llama",
		"mistral", "affinity", "photoshop", "illustrator", "figma", "vscode",
		"visual studio code", "iphone", "android", "windows", "macos", "ios", "chrome",
		"firefox", "safari", "excel", "blender", "unity", "unreal engine",
	}
	domainTerms = []string{
		"freemium", "open-source", "open source", "open-weight", "subscription",
		"acquisition", "layoffs", "zero-day", "ransomware", "data breach", "antitrust",
		"paywall",
	}
	canonicalTerms = map[string]string{
		"open source": "open-source",
		"postgres":    "postgresql",
		"vscode":      "visual studio code",
	}

	stopwords = NewSet(
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
		"had", "has", "have", "was", "were", "been", "this", "that", "with", "from",
		"they", "them", "their", "there", "these", "those", "what", "when", "where", "which",
		"will", "would", "could", "should", "about", "into", "than", "then", "just", "more",
		"some", "such", "only", "also", "over", "very", "your", "after", "before", "here",
	)

	acronymPattern = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	urlPattern     = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
)

// Extractor pulls entities and keywords out of free text. It is safe for
// concurrent use; all state is compiled at construction.
type Extractor struct {
	categories []*regexp.Regexp
}

var (
	defaultOnce      sync.Once
	defaultExtractor *Extractor
)

// Default returns the shared extractor built from the built-in vocabularies.
func Default() *Extractor {
	defaultOnce.Do(func() {
		defaultExtractor = NewExtractor(organizations, frameworks, languages, namedOrgs, products, domainTerms)
	})
	return defaultExtractor
}

// NewExtractor compiles one case-insensitive word-boundary matcher per
// category list.
func NewExtractor(categories ...[]string) *Extractor {
	e := &Extractor{}
	for _, terms := range categories {
		if re := compileCategory(terms); re != nil {
			e.categories = append(e.categories, re)
		}
	}
	return e
}

func compileCategory(terms []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ToLower(term))
		if term == "" {
			continue
		}
		quoted := regexp.QuoteMeta(term)
		alternatives = append(alternatives, strings.ReplaceAll(quoted, " ", `\s+`))
	}
	if len(alternatives) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}

// ExtractEntities returns the lower-cased entities mentioned in text.
func (e *Extractor) ExtractEntities(text string) Set {
	entities := Set{}
	if strings.TrimSpace(text) == "" {
		return entities
	}

	for _, re := range e.categories {
		for _, match := range re.FindAllString(text, -1) {
			entities.Add(normalizeEntity(match))
		}
	}
	for _, match := range acronymPattern.FindAllString(text, -1) {
		entities.Add(normalizeEntity(match))
	}
	return entities
}

// ExtractKeywords returns significant lower-cased tokens of at least
// minLength runes.
func (e *Extractor) ExtractKeywords(text string, minLength int) Set {
	keywords := Set{}
	if strings.TrimSpace(text) == "" {
		return keywords
	}
	if minLength <= 0 {
		minLength = DefaultMinKeywordLength
	}

	cleaned := urlPattern.ReplaceAllString(text, " ")
	cleaned = mentionPattern.ReplaceAllString(cleaned, " ")
	cleaned = hashtagPattern.ReplaceAllString(cleaned, " ")

	for _, token := range Tokenize(cleaned) {
		if utf8.RuneCountInString(token) < minLength {
			continue
		}
		if stopwords.Has(token) {
			continue
		}
		keywords.Add(token)
	}
	return keywords
}

// ExtractEntities runs the default extractor.
func ExtractEntities(text string) Set {
	return Default().ExtractEntities(text)
}

// ExtractKeywords runs the default extractor.
func ExtractKeywords(text string, minLength int) Set {
	return Default().ExtractKeywords(text, minLength)
}

// Tokenize lower-cases text and splits it on anything that is not a letter
// or a digit.
func Tokenize(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil
	}
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// IsStopword reports whether token is in the built-in stopword list.
func IsStopword(token string) bool {
	return stopwords.Has(strings.ToLower(token))
}

func normalizeEntity(match string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(match)), " ")
	if canonical, ok := canonicalTerms[normalized]; ok {
		return canonical
	}
	return normalized
}
