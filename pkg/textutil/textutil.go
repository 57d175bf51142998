// Package textutil holds small text helpers shared by the AI and Reddit adapters.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	tagPattern   = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(?:\s[^<>]*)?/?>`)
	angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

// htmlElements are the tags StripMarkup removes. Anything else in angle brackets is text.
var htmlElements = map[string]bool{
	"a": true, "b": true, "blockquote": true, "br": true, "code": true, "del": true,
	"div": true, "em": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "hr": true, "i": true, "img": true, "li": true, "ol": true, "p": true,
	"pre": true, "s": true, "script": true, "span": true, "strong": true, "style": true,
	"sub": true, "sup": true, "table": true, "td": true, "th": true, "tr": true, "u": true,
	"ul": true,
}

// StripMarkup removes HTML elements from s and returns plain text. Bare comparisons such as
// "x<y" and unknown bracketed words such as "<sarcasm>" are kept verbatim.
func StripMarkup(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range tagPattern.FindAllStringSubmatchIndex(s, -1) {
		if !htmlElements[strings.ToLower(s[m[2]:m[3]])] {
			continue
		}
		b.WriteString(angleEscaper.Replace(s[last:m[0]]))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(angleEscaper.Replace(s[last:]))

	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(b.String())))
}

// StripCodeFences removes a surrounding ``` or ```json fence from a model response.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:nl]), "{") {
			// drop the language tag line, e.g. "json"
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
