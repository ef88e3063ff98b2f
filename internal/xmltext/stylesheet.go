package xmltext

import (
	"errors"
	"sort"

	"github.com/beevik/etree"
)

// Template converts one legacy element, appending the result to out.
// Templates are looked up by element name; among the templates whose When
// predicate holds, the one with the highest Priority wins. Equal priorities
// resolve to the template registered last, so later template sets override
// earlier ones.
type Template struct {
	Match    string
	When     func(el *etree.Element) bool
	Priority int
	Apply    func(t *Transformation, el *etree.Element, out *etree.Element)
}

// Stylesheet is an ordered set of templates mapping the normalized legacy
// tree onto RichText
type Stylesheet struct {
	templates map[string][]Template
}

// NewStylesheet builds a stylesheet from template sets. Sets given later take
// precedence over earlier ones at equal priority.
func NewStylesheet(sets ...[]Template) *Stylesheet {
	s := &Stylesheet{templates: make(map[string][]Template)}
	for _, set := range sets {
		for _, tpl := range set {
			// prepend, so that the stable sort keeps later registrations first
			s.templates[tpl.Match] = append([]Template{tpl}, s.templates[tpl.Match]...)
		}
	}
	for _, list := range s.templates {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	}
	return s
}

// DefaultStylesheet is the DocBook template set overridden by the core
// eZ template set
func DefaultStylesheet() *Stylesheet {
	return NewStylesheet(DocBookTemplates(), CoreTemplates())
}

func (s *Stylesheet) lookup(el *etree.Element) *Template {
	if el.Space != "" {
		return nil
	}
	list := s.templates[el.Tag]
	for i := range list {
		if list[i].When == nil || list[i].When(el) {
			return &list[i]
		}
	}
	return nil
}

// Transform implements Stage
func (s *Stylesheet) Transform(doc *etree.Document) (*etree.Document, error) {
	root := doc.Root()
	if root == nil {
		return nil, errNoRoot
	}

	holder := etree.NewElement("result")
	t := &Transformation{sheet: s}
	t.Apply(root, holder)

	elems := holder.ChildElements()
	if len(elems) != 1 {
		return nil, errors.New("stylesheet did not produce a single root element")
	}

	out := etree.NewDocument()
	out.SetRoot(elems[0])
	return out, nil
}

// Transformation holds the state of one stylesheet run
type Transformation struct {
	sheet *Stylesheet
	depth int // number of enclosing legacy sections
}

// Depth returns the number of legacy sections enclosing the current element
func (t *Transformation) Depth() int {
	return t.depth
}

// Nested runs fn one section level deeper
func (t *Transformation) Nested(fn func()) {
	t.depth++
	defer func() { t.depth-- }()
	fn()
}

// Apply converts el into out using the best matching template. Elements
// without a template are copied through unchanged so that validation can
// report them.
func (t *Transformation) Apply(el *etree.Element, out *etree.Element) {
	if tpl := t.sheet.lookup(el); tpl != nil {
		tpl.Apply(t, el, out)
		return
	}
	copyThrough(t, el, out)
}

// ApplyChildren converts the children of el into out. Comments and
// processing instructions are not carried over.
func (t *Transformation) ApplyChildren(el *etree.Element, out *etree.Element) {
	for _, tok := range el.Child {
		switch c := tok.(type) {
		case *etree.Element:
			t.Apply(c, out)
		case *etree.CharData:
			out.CreateText(c.Data)
		}
	}
}

func copyThrough(t *Transformation, el *etree.Element, out *etree.Element) {
	cp := out.CreateElement(el.Tag)
	for _, a := range el.Attr {
		if a.Space == "" && a.Key != "xmlns" {
			cp.CreateAttr(a.Key, a.Value)
		}
	}
	t.ApplyChildren(el, cp)
}

// raw appends text that is written without escaping
func raw(out *etree.Element, text string) {
	out.AddChild(etree.NewProcInst(rawTarget, text))
}
