package htmlutil

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` as-is.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	walkText(node, func(text string) {
		buffer.WriteString(text)
	})
	return buffer.String()
}

// GetStrippedText concatenates every text node under `node` with the surrounding
// whitespace of each text node removed, so `<td> 1 <span>- 2</span> </td>` becomes "1- 2".
func GetStrippedText(node *html.Node) string {
	var buffer bytes.Buffer
	walkText(node, func(text string) {
		buffer.WriteString(strings.TrimSpace(text))
	})
	return buffer.String()
}

func walkText(node *html.Node, visit func(text string)) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		visit(node.Data)
		return
	}
	// comments, scripts and styles never render as text
	if node.Type == html.CommentNode {
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		walkText(child, visit)
		child = child.NextSibling
	}
}

// QueryParam returns the value of query parameter `key` in the (possibly relative) link `href`.
func QueryParam(href, key string) (string, bool) {
	link, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	values := link.Query()
	if !values.Has(key) {
		return "", false
	}
	return values.Get(key), true
}
