// Package ingestion normalises job descriptions and CV text before they are
// sent to the LLM or the embedding model.
package ingestion

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
	htmlTag      = regexp.MustCompile(`(?i)<(html|body|div|p|ul|ol|li|br|h[1-6]|span|section|article|table)[\s>/]`)
)

// noiseSelectors are removed before extracting text from HTML.
const noiseSelectors = "script, style, noscript, nav, footer, header, iframe, form, .cookie-banner, .advertisement"

// Prepare cleans text (converting HTML first when it looks like markup) and
// truncates the result to maxChars at a word boundary. maxChars <= 0 disables truncation.
func Prepare(text string, maxChars int) (string, error) {
	if IsLikelyHTML(text) {
		extracted, err := HTMLToText(text)
		if err != nil {
			return "", err
		}
		text = extracted
	}
	return Truncate(CleanText(text), maxChars), nil
}

// CleanText normalises line endings and whitespace while keeping paragraph
// and bullet structure.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ToValidUTF8(content, "")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if isBulletLine(trimmed) {
		return "- " + spaceRun.ReplaceAllString(strings.TrimSpace(trimmed[bulletWidth(trimmed):]), " ")
	}
	return spaceRun.ReplaceAllString(trimmed, " ")
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "· ")
}

func bulletWidth(line string) int {
	_, size := utf8.DecodeRuneInString(line)
	return size
}

// IsLikelyHTML reports whether text looks like an HTML document or fragment.
func IsLikelyHTML(text string) bool {
	head := text
	if len(head) > 2048 {
		head = head[:2048]
	}
	return htmlTag.MatchString(head)
}

// HTMLToText extracts readable text from an HTML job posting. Block elements
// become line breaks and list items become bullets.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelectors).Remove()
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n- ")
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, section, article, tr, ul, ol").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	root := doc.Find("main, article, .job-description, #job-description").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}
	return CleanText(root.Text()), nil
}

// Truncate cuts text to at most maxChars runes, backing up to the last
// whitespace so words are not split.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)[:maxChars]
	cut := string(runes)
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// ReadFile reads and prepares a job description or CV from disk.
func ReadFile(path string, maxChars int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return Prepare(string(content), maxChars)
}
