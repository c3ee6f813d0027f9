package harvest

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// parseHTMLPage extracts result rows from a rendered search page. Each row
// is a block whose class contains "concept_light"; within it the first
// "text" span is the written form, the "furigana" span the reading, and
// "concept_light-tag" spans the raw tags. Anything that does not look like
// that is ignored; a malformed block yields an empty row the caller counts
// as skipped, and a page with no recognizable rows reads as empty.
func parseHTMLPage(body []byte) []row {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// html.Parse is extremely tolerant; an error here means the body
		// is not HTML at all.
		return nil
	}

	var rows []row
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "concept_light") {
			rows = append(rows, parseConceptBlock(n))
			return // rows do not nest
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func parseConceptBlock(n *html.Node) row {
	var r row
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "concept_light-tag"):
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					r.Tags = append(r.Tags, t)
				}
				return
			case hasClass(n, "furigana"):
				if r.Reading == "" {
					r.Reading = strings.TrimSpace(nodeText(n))
				}
				return
			case hasClass(n, "text"):
				if r.Term == "" {
					r.Term = strings.TrimSpace(nodeText(n))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return r
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
