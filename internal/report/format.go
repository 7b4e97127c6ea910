package report

import "regexp"

// The model is asked to answer with ## / ### headings, **bold** and
// "* " bullets. FormatHTML rewrites just those markers; everything
// else passes through untouched. Escaping is deliberately not done
// here: sanitization happens at the storage boundary.
var (
	h3Re   = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Re   = regexp.MustCompile(`(?m)^## (.*)$`)
	boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	listRe = regexp.MustCompile(`(?m)^\* (.*)$`)
)

// FormatHTML converts the markdown-like markers in generated report
// text into HTML fragments. Pure and deterministic; text containing no
// markers is returned byte-identical.
func FormatHTML(text string) string {
	out := h3Re.ReplaceAllString(text, `<h3 class="text-lg font-semibold mt-3 mb-1">$1</h3>`)
	out = h2Re.ReplaceAllString(out, `<h2 class="text-xl font-bold mt-4 mb-2">$1</h2>`)
	out = boldRe.ReplaceAllString(out, `<strong>$1</strong>`)
	out = listRe.ReplaceAllString(out, `<li class="ml-4 list-disc">$1</li>`)
	return out
}
