// Package sanitize turns model output written in Markdown into plain text
// for platforms that do not render it.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags  = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?[ou]l>|</li>`)
	itemTags   = regexp.MustCompile(`<li>`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// Policy strips Markdown and HTML.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPlainText creates a Policy that keeps only text.
func NewPlainText() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// Text renders text as Markdown and returns what a reader would see,
// without markup. On conversion failure text is returned unchanged.
func (p *Policy) Text(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := itemTags.ReplaceAllString(buf.String(), "\n• ")
	out = blockTags.ReplaceAllString(out, "\n")
	out = p.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
