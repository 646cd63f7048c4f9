package extract

// Turns the raw title/description/content fields of a search result into
// a single cleaned-up blob of plain text.

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// RawArticle holds the fields we clean, in the order we clean them.
type RawArticle struct {
	Title       string
	Description string
	Content     string
}

var junkSel = cascadia.MustCompile("script, style")

// StripMarkup removes html tags from a fragment and collapses runs of
// whitespace down to single spaces. Plain text passes through unchanged
// (bar the whitespace tidying).
func StripMarkup(src string) string {
	if !strings.ContainsAny(src, "<&") {
		return collapse(src)
	}

	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		// treat unparsable markup as plain text
		return collapse(src)
	}
	for _, n := range junkSel.MatchAll(root) {
		n.Parent.RemoveChild(n)
	}

	// join text nodes with spaces - plain textContent concatenation can
	// glue words together across adjacent elements
	parts := []string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return collapse(strings.Join(parts, " "))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanText builds the text blob for one article: each non-empty field
// stripped and joined with single spaces. Empty result just means the
// article had nothing usable in it.
func CleanText(raw *RawArticle) string {
	parts := []string{}
	for _, field := range []string{raw.Title, raw.Description, raw.Content} {
		if field == "" {
			continue
		}
		cleaned := StripMarkup(field)
		if cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, " ")
}
