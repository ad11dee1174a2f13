package scraper

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// blockElements start a new line in visible text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

var hiddenElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true,
}

// visibleText renders the text of n roughly as a browser would: block
// elements on their own lines, whitespace collapsed within a line, empty
// lines dropped.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenElements[n.Data] {
				return
			}
			if n.Data == "td" || n.Data == "th" {
				b.WriteString(" ")
			}
			if blockElements[n.Data] {
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(n)
	return normalizeLines(b.String())
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = cleanText(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// cleanText collapses all runs of whitespace, including non-breaking spaces,
// into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nextInOrder returns the node after n in document order. Children of n are
// visited first only when descend is set.
func nextInOrder(n *html.Node, descend bool) *html.Node {
	if descend && n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// nextElement finds the first element after n in document order, skipping
// n's own subtree. An empty tag matches any element.
func nextElement(n *html.Node, tag string) *html.Node {
	for cur := nextInOrder(n, false); cur != nil; cur = nextInOrder(cur, true) {
		if cur.Type == html.ElementNode && !hiddenElements[cur.Data] && (tag == "" || cur.Data == tag) {
			return cur
		}
	}
	return nil
}

// findText returns the first visible text node accepted by match.
func findText(root *html.Node, match func(string) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && hiddenElements[n.Data] {
			return false
		}
		if n.Type == html.TextNode && match(n.Data) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

// resolveURL makes href absolute against origin. Fragment-only and script
// links resolve to "".
func resolveURL(origin *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if origin == nil {
		return ""
	}
	return origin.ResolveReference(ref).String()
}
