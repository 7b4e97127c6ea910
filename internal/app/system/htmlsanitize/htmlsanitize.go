// Package htmlsanitize cleans rich text before it reaches a page. Both
// the admin-edited landing page and footer and the generated report
// narratives pass through here.
package htmlsanitize

import (
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// getPolicy lazily builds the shared bluemonday policy. The UGC base
// already permits links, lists and basic formatting; report narratives
// additionally need tables and utility classes.
var getPolicy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	p.AllowAttrs("class").OnElements("table", "th", "td", "tr")
	p.AllowAttrs("style").OnElements("table", "th", "td")

	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class").OnElements("h2", "h3", "ul", "ol", "li", "p")

	return p
})

// Sanitize strips dangerous markup from html and returns what is safe
// to show, keeping formatting such as bold, lists, links and tables.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return getPolicy().Sanitize(html)
}

// SanitizeToHTML sanitizes and wraps the result in template.HTML so a
// template renders it without a second escaping pass.
func SanitizeToHTML(html string) template.HTML {
	return template.HTML(Sanitize(html))
}

// IsPlainText reports whether content carries no HTML markup. A tag
// needs both angle brackets, so content missing either is plain text.
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML escapes text and turns it into a single paragraph,
// with newlines becoming <br> tags.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders content that may be either plain text or
// HTML. Plain text is escaped and wrapped; HTML is sanitized.
func PrepareForDisplay(content string) template.HTML {
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return template.HTML(PlainTextToHTML(content))
	}
	return SanitizeToHTML(content)
}
