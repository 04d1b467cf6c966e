package htmlutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes every element, and drops the content of script-like
// elements entirely.
var strictPolicy = bluemonday.StrictPolicy()

// multipleSpacesPattern matches multiple consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

var blockTags = []string{"</p>", "</div>", "<br>", "<br/>", "<br />", "</li>", "</h1>", "</h2>", "</h3>", "</h4>", "</h5>", "</h6>"}

// StripTags removes all HTML from a string and normalizes whitespace.
// Block-level tags become newlines so paragraphs survive.
func StripTags(input string) string {
	if input == "" {
		return ""
	}

	result := input
	for _, tag := range blockTags {
		result = strings.ReplaceAll(result, tag, "\n")
		result = strings.ReplaceAll(result, strings.ToUpper(tag), "\n")
	}

	// The policy escapes text on the way out, so decode afterwards to get
	// plain text back.
	result = decodeHTMLEntities(strictPolicy.Sanitize(result))

	lines := strings.Split(result, "\n")
	nonEmptyLines := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(multipleSpacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			nonEmptyLines = append(nonEmptyLines, line)
		}
	}

	return strings.Join(nonEmptyLines, "\n")
}

// Sanitize is StripTags for single-line values such as titles and names.
func Sanitize(input string) string {
	return strings.Join(strings.Fields(StripTags(input)), " ")
}

// SanitizeAll applies Sanitize to every value and drops the ones that end up
// empty.
func SanitizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = Sanitize(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// decodeHTMLEntities decodes named and numeric entities. Non-breaking spaces
// become regular spaces so they can be collapsed.
func decodeHTMLEntities(s string) string {
	return strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
}
