package service

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxHTMLPasses bounds how many layers of entity escaping are unwrapped.
const maxHTMLPasses = 4

var angleStripper = strings.NewReplacer("<", "", ">", "")

// HTMLSanitizer drops every tag, comment and attribute, and the bodies of
// script and style elements, keeping only text. Decoded entities are
// stripped again until the text is stable, so "&lt;script&gt;" never comes
// back out as markup.
type HTMLSanitizer struct{}

// Sanitize returns text with all markup removed.
func (HTMLSanitizer) Sanitize(text string) string {
	for i := 0; i < maxHTMLPasses; i++ {
		if !strings.ContainsAny(text, "<&") {
			return text
		}
		next := stripMarkup(text)
		if next == text {
			return text
		}
		text = next
	}
	if next := stripMarkup(text); next != text {
		// still unwrapping escapes: drop what could form a tag
		return angleStripper.Replace(next)
	}
	return text
}

func stripMarkup(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template:
		return true
	}
	return false
}
