// Package richtext expands the small markup subset used by prompt templates
// (<b>, <strong>, <i>, <em>, <br>) into display text. Anything else is dropped,
// so markup never reaches the user literally.
package richtext

import (
	"fmt"
	"strings"

	"github.com/benvon/saveprompt/internal/models"
	"golang.org/x/net/html"
)

var emphasisTags = map[string]bool{
	"b":      true,
	"strong": true,
	"i":      true,
	"em":     true,
}

// Format escapes args, substitutes them into template with fmt verbs, and
// expands the result. Argument values are always treated as text.
func Format(template string, args ...string) models.RichText {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = html.EscapeString(a)
	}
	return Expand(fmt.Sprintf(template, escaped...))
}

// Expand tokenizes markup into spans
func Expand(markup string) models.RichText {
	z := html.NewTokenizer(strings.NewReader(markup))
	b := &builder{}
	depth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF; a strings.Reader has no other failure mode
			return b.finish()
		case html.TextToken:
			b.write(string(z.Text()), depth > 0)
		case html.StartTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case emphasisTags[tag]:
				depth++
			case tag == "br":
				b.write("\n", depth > 0)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if emphasisTags[string(name)] && depth > 0 {
				depth--
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.write("\n", depth > 0)
			}
		}
	}
}

type builder struct {
	spans []models.Span
}

func (b *builder) write(text string, emphasis bool) {
	if text == "" {
		return
	}
	if n := len(b.spans); n > 0 && b.spans[n-1].Emphasis == emphasis {
		b.spans[n-1].Text += text
		return
	}
	b.spans = append(b.spans, models.Span{Text: text, Emphasis: emphasis})
}

func (b *builder) finish() models.RichText {
	var display, safe strings.Builder
	for _, s := range b.spans {
		display.WriteString(s.Text)
		if s.Emphasis {
			safe.WriteString("<b>")
			safe.WriteString(html.EscapeString(s.Text))
			safe.WriteString("</b>")
		} else {
			safe.WriteString(html.EscapeString(s.Text))
		}
	}
	return models.RichText{
		Display: display.String(),
		HTML:    safe.String(),
		Spans:   b.spans,
	}
}
