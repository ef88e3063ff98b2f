package xmltext

import "github.com/beevik/etree"

// CommentStripper removes every comment node from a document
type CommentStripper struct{}

// Transform implements Stage
func (CommentStripper) Transform(doc *etree.Document) (*etree.Document, error) {
	stripComments(&doc.Element)
	return doc, nil
}

func stripComments(el *etree.Element) {
	for i := len(el.Child) - 1; i >= 0; i-- {
		switch t := el.Child[i].(type) {
		case *etree.Comment:
			el.RemoveChildAt(i)
		case *etree.Element:
			stripComments(t)
		}
	}
}
