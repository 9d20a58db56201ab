// Package scrape inspects the HTML the wiki sends back: error containers,
// edit tokens and global block list entries. Parsing is best-effort; a
// document the parser cannot make sense of simply yields no matches.
package scrape

import (
	"net/netip"
	"strings"

	"golang.org/x/net/html"
)

// FindError reports whether doc contains an element carrying the "error"
// class and returns its flattened text.
func FindError(doc string) (string, bool) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", false
	}
	node := findByClass(root, "error")
	if node == nil {
		return "", false
	}
	return strings.Join(strings.Fields(text(node)), " "), true
}

// EditToken extracts the wpEditToken hidden input from a form page. Empty
// means the page carried no token; older wikis accept token-less submissions.
func EditToken(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	var token string
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "wpEditToken" {
			token = attr(n, "value")
			return false
		}
		return true
	})
	return token
}

// BlockTargets extracts the blocked address of every entry on a
// Special:GlobalBlockList result page. Each active block renders as a list
// item whose first address-shaped anchor names the block target.
func BlockTargets(doc string) []string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	var targets []string
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "li" {
			return true
		}
		if target := firstAddressAnchor(n); target != "" {
			targets = append(targets, target)
		}
		return false
	})
	return targets
}

func firstAddressAnchor(li *html.Node) string {
	var found string
	walk(li, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		label := strings.TrimSpace(text(n))
		if isAddress(label) {
			found = label
			return false
		}
		return true
	})
	return found
}

func isAddress(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}

// walk runs visit over n and its subtree in document order, pruning a branch
// when visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findByClass(n *html.Node, class string) *html.Node {
	var match *html.Node
	walk(n, func(node *html.Node) bool {
		if node.Type == html.ElementNode && hasClass(node, class) {
			match = node
			return false
		}
		return match == nil
	})
	return match
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(node *html.Node) bool {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		return true
	})
	return b.String()
}
