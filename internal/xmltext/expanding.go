package xmltext

import "github.com/beevik/etree"

// ExpansionMode selects how Expander treats temporary paragraphs
type ExpansionMode int

const (
	// RespectTemporary treats paragraphs carrying the temporary marker as
	// throwaway wrappers: their block children are kept, their inline
	// content is dropped
	RespectTemporary ExpansionMode = iota
	// IgnoreTemporary never treats a paragraph as temporary
	IgnoreTemporary
)

func (m ExpansionMode) String() string {
	if m == IgnoreTemporary {
		return "ignore-temporary"
	}
	return "respect-temporary"
}

// Elements that may not stay inside a paragraph
var blockTags = map[string]bool{
	"paragraph": true,
	"section":   true,
	"header":    true,
	"ul":        true,
	"ol":        true,
	"table":     true,
	"literal":   true,
	"embed":     true,
}

// Custom tags rendered inline; every other custom tag is a block
var inlineCustomTags = map[string]bool{
	"underline": true,
	"sub":       true,
	"sup":       true,
	"strike":    true,
}

// Containers whose loose inline content is wrapped into paragraphs
var paragraphContainers = map[string]bool{
	"li": true,
	"td": true,
	"th": true,
}

// Expander normalizes legacy paragraph nesting. Block elements nested in a
// paragraph are lifted to the paragraph's level and the inline runs around
// them become sibling paragraphs carrying the original attributes.
type Expander struct {
	Mode ExpansionMode
}

// Transform implements Stage
func (x Expander) Transform(doc *etree.Document) (*etree.Document, error) {
	if root := doc.Root(); root != nil {
		x.expand(root)
	}
	return doc, nil
}

func (x Expander) expand(el *etree.Element) {
	for _, child := range el.ChildElements() {
		// para is accepted as an alias of paragraph
		if child.Space == "" && child.Tag == "para" {
			child.Tag = "paragraph"
		}
		x.expand(child)
	}

	for _, child := range el.ChildElements() {
		if child.Tag == "paragraph" {
			replaceChild(el, child, x.split(child))
		}
	}

	if paragraphContainers[el.Tag] {
		wrapInlineRuns(el)
	}
}

// split returns the tokens replacing paragraph p
func (x Expander) split(p *etree.Element) []etree.Token {
	temporary := x.isTemporary(p)
	if !temporary && !hasBlockChild(p) {
		return []etree.Token{p}
	}

	var out, run []etree.Token
	flush := func() {
		if !temporary && !isBlankRun(run) {
			np := paragraphLike(p)
			for _, t := range run {
				np.AddChild(t)
			}
			out = append(out, np)
		}
		run = nil
	}

	for _, tok := range append([]etree.Token(nil), p.Child...) {
		if el, ok := tok.(*etree.Element); ok && isBlock(el) {
			flush()
			out = append(out, el)
			continue
		}
		run = append(run, tok)
	}
	flush()

	return out
}

func (x Expander) isTemporary(p *etree.Element) bool {
	if x.Mode == IgnoreTemporary {
		return false
	}
	v, ok := attrNS(p, nsTemporary, "temporary")
	return ok && v == "true"
}

func isBlock(el *etree.Element) bool {
	if el.Space != "" {
		return false
	}
	if el.Tag == "custom" {
		name, _ := attr(el, "name")
		return !inlineCustomTags[name]
	}
	return blockTags[el.Tag]
}

func hasBlockChild(el *etree.Element) bool {
	for _, child := range el.ChildElements() {
		if isBlock(child) {
			return true
		}
	}
	return false
}

// paragraphLike creates an empty paragraph with the attributes of p, minus
// the temporary marker
func paragraphLike(p *etree.Element) *etree.Element {
	np := etree.NewElement("paragraph")
	for _, a := range p.Attr {
		if a.Space != "" && a.Space != "xmlns" && lookupNamespace(p, a.Space) == nsTemporary {
			continue
		}
		np.CreateAttr(fullKey(a), a.Value)
	}
	return np
}

// wrapInlineRuns wraps consecutive non-block children of el into paragraphs
func wrapInlineRuns(el *etree.Element) {
	if !hasInlineContent(el) {
		return
	}

	var out, run []etree.Token
	flush := func() {
		if !isBlankRun(run) {
			np := etree.NewElement("paragraph")
			for _, t := range run {
				np.AddChild(t)
			}
			out = append(out, np)
		}
		run = nil
	}
	for _, tok := range append([]etree.Token(nil), el.Child...) {
		if child, ok := tok.(*etree.Element); ok && isBlock(child) {
			flush()
			out = append(out, child)
			continue
		}
		run = append(run, tok)
	}
	flush()

	for len(el.Child) > 0 {
		el.RemoveChildAt(len(el.Child) - 1)
	}
	for _, t := range out {
		el.AddChild(t)
	}
}

func hasInlineContent(el *etree.Element) bool {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if !isBlock(t) {
				return true
			}
		case *etree.CharData:
			if !t.IsWhitespace() {
				return true
			}
		}
	}
	return false
}
