package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseDocument parses markup with comment-hidden blocks expanded in place.
// The source site wraps some tables in HTML comments so they render only
// via script; the data is still there, just invisible to a naive selector.
func parseDocument(markup string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	expandComments(root)
	return goquery.NewDocumentFromNode(root), nil
}

func expandComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode && looksLikeMarkup(child.Data) {
			ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
			nodes, err := html.ParseFragment(strings.NewReader(child.Data), ctxNode)
			if err == nil && len(nodes) > 0 {
				for _, f := range nodes {
					n.InsertBefore(f, child)
				}
				n.RemoveChild(child)
			}
		} else {
			expandComments(child)
		}
		child = next
	}
}

func looksLikeMarkup(comment string) bool {
	comment = strings.ToLower(comment)
	return strings.Contains(comment, "<table") || strings.Contains(comment, "<div")
}

// cleanText collapses whitespace the way the source site pads cells.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
