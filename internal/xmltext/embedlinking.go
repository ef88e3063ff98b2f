package xmltext

import (
	"strings"

	"github.com/beevik/etree"
)

// embedLinkPrefix prefixes link attributes carried over to an embed
const embedLinkPrefix = "ezlegacytmp-embed-link-"

// EmbedLinker replaces a link wrapping a single embed with the embed itself.
// The link's attributes move to the embed under embedLinkPrefix, where the
// stylesheet turns them into an ezlink element.
type EmbedLinker struct{}

// Transform implements Stage
func (EmbedLinker) Transform(doc *etree.Document) (*etree.Document, error) {
	root := doc.Root()
	if root == nil {
		return doc, nil
	}
	for _, link := range collect(root, "link") {
		embed := linkedEmbed(link)
		if embed == nil {
			continue
		}
		for _, a := range link.Attr {
			if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
				continue
			}
			embed.CreateAttr(embedLinkPrefix+strings.ReplaceAll(fullKey(a), ":", "-"), a.Value)
		}
		replaceChild(link.Parent(), link, []etree.Token{embed})
	}
	return doc, nil
}

// linkedEmbed returns the only child of link when it is an embed and link
// has no other content
func linkedEmbed(link *etree.Element) *etree.Element {
	children := link.ChildElements()
	if len(children) != 1 || !isEmbed(children[0]) {
		return nil
	}
	if !isBlankRun(textTokens(link)) {
		return nil
	}
	return children[0]
}

func isEmbed(el *etree.Element) bool {
	return el.Space == "" && (el.Tag == "embed" || el.Tag == "embed-inline")
}

func textTokens(el *etree.Element) []etree.Token {
	var out []etree.Token
	for _, tok := range el.Child {
		if _, ok := tok.(*etree.CharData); ok {
			out = append(out, tok)
		}
	}
	return out
}

// collect returns every descendant of el named tag, in document order
func collect(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Space == "" && child.Tag == tag {
			out = append(out, child)
		}
		out = append(out, collect(child, tag)...)
	}
	return out
}
