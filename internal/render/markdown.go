// Package render turns message text into the HTML placed inside a conversation bubble.
package render

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown into sanitized HTML. A nil Renderer, or one whose markdown converter
// or sanitizer is missing, falls back to escaped plain text.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy

	highlightStyle string
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	highlightStyle string
}

// chroma emits short class names like "k", "nx" or "chroma".
var highlightClasses = regexp.MustCompile(`^[a-zA-Z0-9\- ]+$`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// WithHighlighting enables syntax highlighting of fenced code blocks using the named chroma style.
// Highlighted code is marked up with CSS classes; WriteHighlightCSS serves the matching stylesheet.
func WithHighlighting(style string) Option {
	return func(o *options) {
		o.highlightStyle = style
	}
}

// New creates a Renderer using GitHub flavored markdown where soft line breaks become <br>, heading
// anchors are not generated, and the output is passed through a user generated content policy.
func New(opts ...Option) *Renderer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	extensions := []goldmark.Extender{extension.GFM}
	policy := bluemonday.UGCPolicy()

	if o.highlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(o.highlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
		policy.AllowAttrs("class").Matching(highlightClasses).OnElements("pre", "code", "span")
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		// Raw HTML is kept so the sanitizer, not the parser, decides what survives.
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)

	return &Renderer{
		md:             md,
		policy:         policy,
		highlightStyle: o.highlightStyle,
	}
}

// Markdown renders src into sanitized HTML. It never fails: when conversion is not possible the
// text is escaped instead.
func (r *Renderer) Markdown(src string) string {
	if r == nil || r.md == nil || r.policy == nil {
		return PlainText(src)
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return PlainText(src)
	}
	return r.policy.Sanitize(buf.String())
}

// HighlightStyle returns the chroma style name, or an empty string when highlighting is disabled.
func (r *Renderer) HighlightStyle() string {
	if r == nil {
		return ""
	}
	return r.highlightStyle
}

// WriteHighlightCSS writes the stylesheet for the highlight style the Renderer was built with. It
// writes nothing when highlighting is disabled.
func (r *Renderer) WriteHighlightCSS(w io.Writer) error {
	if r == nil || r.highlightStyle == "" {
		return nil
	}

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(w, styles.Get(r.highlightStyle)); err != nil {
		return errors.Wrapf(err, "failed to write css for style %s", r.highlightStyle)
	}
	return nil
}

// EscapeHTML replaces &, <, >, " and ' with entities. Replacement happens in a single pass, so an
// entity produced for one character is never escaped again.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// PlainText escapes s and turns every newline into a line break tag.
func PlainText(s string) string {
	return strings.ReplaceAll(EscapeHTML(s), "\n", "<br/>")
}
