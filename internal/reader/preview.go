package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

var fallbackPageURL = &url.URL{Scheme: "https", Host: "localhost", Path: "/"}

// ExtractText renders the readable text of an HTML document. pageURL only
// resolves relative links and may be empty.
func ExtractText(html, pageURL, title string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("html body is empty")
	}

	base := fallbackPageURL
	if trimmed := strings.TrimSpace(pageURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("parse page url: %w", err)
		}
		base = parsed
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		text = strings.TrimSpace(title)
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}
	return text, nil
}

// LooksLikeHTML reports whether body carries markup worth running through
// ExtractText.
func LooksLikeHTML(body string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(body))
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	for _, marker := range []string{"<html", "<body", "<article", "<p>", "<p ", "<div", "<!doctype"} {
		if strings.Contains(trimmed, marker) {
			return true
		}
	}
	return false
}

// NormalizeBody returns plain text for a generated body, extracting it from
// HTML when needed.
func NormalizeBody(body, title string) string {
	if !LooksLikeHTML(body) {
		return CleanText(body)
	}
	text, err := ExtractText(body, "", title)
	if err != nil {
		return CleanText(body)
	}
	return text
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
