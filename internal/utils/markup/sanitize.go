// Package markup reduces untrusted assistant output to a small, attribute-free HTML subset.
package markup

import (
	"errors"
	"html"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Strong:     true,
	atom.B:          true,
	atom.Em:         true,
	atom.I:          true,
	atom.U:          true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Code:       true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
}

// Elements whose text content is dropped along with the tag.
var droppedContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Textarea: true,
	atom.Title:    true,
}

// Sanitize returns input with every tag outside the allowlist removed, all attributes stripped,
// text escaped and open elements closed. Plain text passes through escaped.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}

	z := nethtml.NewTokenizer(strings.NewReader(input))
	var (
		out   strings.Builder
		open  []atom.Atom
		skip  atom.Atom
		depth int
	)
	out.Grow(len(input))

	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				out.WriteString(html.EscapeString(string(z.Raw())))
			}
			break
		}
		tok := z.Token()

		if depth > 0 {
			switch {
			case tt == nethtml.StartTagToken && tok.DataAtom == skip:
				depth++
			case tt == nethtml.EndTagToken && tok.DataAtom == skip:
				depth--
			}
			continue
		}

		switch tt {
		case nethtml.TextToken:
			out.WriteString(html.EscapeString(tok.Data))
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			if droppedContent[tok.DataAtom] {
				if tt == nethtml.StartTagToken {
					skip, depth = tok.DataAtom, 1
				}
				continue
			}
			if !allowedTags[tok.DataAtom] {
				continue
			}
			if tok.DataAtom == atom.Br {
				out.WriteString("<br>")
				continue
			}
			out.WriteString("<" + tok.DataAtom.String() + ">")
			if tt == nethtml.SelfClosingTagToken {
				out.WriteString("</" + tok.DataAtom.String() + ">")
				continue
			}
			open = append(open, tok.DataAtom)
		case nethtml.EndTagToken:
			if !allowedTags[tok.DataAtom] || tok.DataAtom == atom.Br {
				continue
			}
			idx := lastIndex(open, tok.DataAtom)
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				out.WriteString("</" + open[i].String() + ">")
			}
			open = open[:idx]
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		out.WriteString("</" + open[i].String() + ">")
	}
	return out.String()
}

// PlainText strips every tag and returns unescaped text, suitable for titles and previews.
func PlainText(input string) string {
	z := nethtml.NewTokenizer(strings.NewReader(input))
	var (
		out   strings.Builder
		depth int
	)
	for {
		tt := z.Next()
		switch tt {
		case nethtml.ErrorToken:
			return strings.TrimSpace(out.String())
		case nethtml.StartTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] {
				depth++
			}
		case nethtml.EndTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] && depth > 0 {
				depth--
			}
		case nethtml.TextToken:
			if depth == 0 {
				out.Write(z.Text())
			}
		}
	}
}

func lastIndex(stack []atom.Atom, a atom.Atom) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == a {
			return i
		}
	}
	return -1
}
