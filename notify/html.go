package notify

import (
	"fmt"
	"regexp"
	"strings"
)

var htmlLink = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// htmlBody converts a markdown report into a minimal self-contained HTML
// email body. Only the constructs the renderer emits are handled: headings,
// links, inline code, and list items.
func htmlBody(markdown string) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString("h1 { border-bottom: 2px solid #2c7be5; padding-bottom: 10px; }\n")
	b.WriteString("h2 { margin-top: 30px; }\n")
	b.WriteString("code { background: #f8f9fa; padding: 2px 4px; border-radius: 4px; }\n")
	b.WriteString("li { margin-bottom: 6px; }\n")
	b.WriteString("a { color: #2c7be5; text-decoration: none; }\n")
	b.WriteString("a:hover { text-decoration: underline; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || trimmed == "---":
			closeList()
		case strings.HasPrefix(trimmed, "### "):
			closeList()
			fmt.Fprintf(&b, "<h3>%s</h3>\n", inline(strings.TrimPrefix(trimmed, "### ")))
		case strings.HasPrefix(trimmed, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>\n", inline(strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>\n", inline(strings.TrimPrefix(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "- "):
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", inline(strings.TrimPrefix(trimmed, "- ")))
		default:
			fmt.Fprintf(&b, "<p>%s</p>\n", inline(trimmed))
		}
	}
	closeList()

	b.WriteString("</body>\n</html>")
	return b.String()
}

// inline escapes a line and rewrites markdown links and inline code spans.
func inline(s string) string {
	s = escapeHTML(s)
	s = htmlLink.ReplaceAllString(s, `<a href="$2">$1</a>`)
	for strings.Count(s, "`") >= 2 {
		s = strings.Replace(s, "`", "<code>", 1)
		s = strings.Replace(s, "`", "</code>", 1)
	}
	return s
}

// escapeHTML escapes HTML special characters for security.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
