package xmltext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Namespaces of the legacy format
const (
	nsLegacyImage  = "http://ez.no/namespaces/ezpublish3/image/"
	nsLegacyXHTML  = "http://ez.no/namespaces/ezpublish3/xhtml/"
	nsLegacyCustom = "http://ez.no/namespaces/ezpublish3/custom/"
	nsTemporary    = "http://ez.no/namespaces/ezpublish3/temporary/"
)

// Namespaces of the RichText format
const (
	nsDocBook  = "http://docbook.org/ns/docbook"
	nsXLink    = "http://www.w3.org/1999/xlink"
	nsEzXHTML  = "http://ez.no/xmlns/ezpublish/docbook/xhtml"
	nsEzCustom = "http://ez.no/xmlns/ezpublish/docbook/custom"
	nsXML      = "http://www.w3.org/XML/1998/namespace"

	richTextVersion = "5.0-variant ezpublish-1.0"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// LegacyEmptyValue is the XmlText document an empty stored value stands for
const LegacyEmptyValue = `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
	`<section xmlns:image="` + nsLegacyImage + `" xmlns:xhtml="` + nsLegacyXHTML + `" xmlns:custom="` + nsLegacyCustom + `"/>` + "\n"

// EmptyValue is the RichText document LegacyEmptyValue converts to
const EmptyValue = xmlDeclaration + "\n" +
	`<section xmlns="` + nsDocBook + `" xmlns:xlink="` + nsXLink + `" xmlns:ezxhtml="` + nsEzXHTML + `" xmlns:ezcustom="` + nsEzCustom + `" version="` + richTextVersion + `"/>` + "\n"

// rawTarget is the processing instruction carrying text that must be written
// without escaping. normalize resolves it.
const rawTarget = "ezxml-raw"

var rawMarker = regexp.MustCompile(`<\?` + rawTarget + ` ([^?]*)\?>`)

// Legacy elements whose whitespace-only text children carry no meaning
var blankInsensitive = map[string]bool{
	"section": true,
	"ul":      true,
	"ol":      true,
	"li":      true,
	"table":   true,
	"tr":      true,
	"td":      true,
	"th":      true,
}

// parseLegacy parses legacy markup the way the original DOM loader does:
// ignorable whitespace between block elements is dropped
func parseLegacy(s string) (*etree.Document, error) {
	doc, err := parseDocument(s)
	if err != nil {
		return nil, err
	}
	dropBlankText(doc.Root())
	return doc, nil
}

func parseDocument(s string) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(s); err != nil {
		return nil, &MalformedInputError{Err: err}
	}

	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, &MalformedInputError{Err: errTextOutside}
			}
		}
	}
	switch {
	case roots == 0:
		return nil, &MalformedInputError{Err: errNoRoot}
	case roots > 1:
		return nil, &MalformedInputError{Err: errMultipleRoots}
	}

	// Only the root element survives; declarations and comments at the
	// document level are not part of the content
	for i := len(doc.Child) - 1; i >= 0; i-- {
		if _, ok := doc.Child[i].(*etree.Element); !ok {
			doc.RemoveChildAt(i)
		}
	}
	return doc, nil
}

func dropBlankText(el *etree.Element) {
	if el == nil {
		return
	}
	if blankInsensitive[el.Tag] {
		for i := len(el.Child) - 1; i >= 0; i-- {
			if cd, ok := el.Child[i].(*etree.CharData); ok && cd.IsWhitespace() {
				el.RemoveChildAt(i)
			}
		}
	}
	for _, child := range el.ChildElements() {
		dropBlankText(child)
	}
}

// writeDocument serializes the root element without a declaration
func writeDocument(doc *etree.Document) (string, error) {
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	s, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}
	return s, nil
}

// normalize serializes doc, resolves raw text markers into literal
// characters, re-parses the result and serializes it once more with an XML
// declaration
func normalize(doc *etree.Document) (string, error) {
	s, err := writeDocument(doc)
	if err != nil {
		return "", err
	}
	s = rawMarker.ReplaceAllString(s, "$1")

	reparsed, err := parseDocument(s)
	if err != nil {
		return "", fmt.Errorf("failed to re-parse converted document: %w", err)
	}
	body, err := writeDocument(reparsed)
	if err != nil {
		return "", err
	}
	return xmlDeclaration + "\n" + strings.TrimSpace(body) + "\n", nil
}

// lookupNamespace resolves prefix (empty for the default namespace) against
// the xmlns declarations on el and its ancestors
func lookupNamespace(el *etree.Element, prefix string) string {
	if prefix == "xml" {
		return nsXML
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// attr returns the value of an unqualified attribute
func attr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// attrNS returns the value of attribute key bound to namespace uri
func attrNS(el *etree.Element, uri, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space != "" && a.Space != "xmlns" && a.Key == key && lookupNamespace(el, a.Space) == uri {
			return a.Value, true
		}
	}
	return "", false
}

// attrsNS returns every attribute of el bound to namespace uri, in document
// order
func attrsNS(el *etree.Element, uri string) []etree.Attr {
	var out []etree.Attr
	for _, a := range el.Attr {
		if a.Space != "" && a.Space != "xmlns" && lookupNamespace(el, a.Space) == uri {
			out = append(out, a)
		}
	}
	return out
}

func fullKey(a etree.Attr) string {
	if a.Space == "" {
		return a.Key
	}
	return a.Space + ":" + a.Key
}

// hasAttr reports whether el carries the attribute written as key
// ("prefix:name" or "name")
func hasAttr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if fullKey(a) == key {
			return a.Value, true
		}
	}
	return "", false
}

// textContent concatenates all character data below el
func textContent(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return b.String()
}

// replaceChild puts repl where old was in parent
func replaceChild(parent *etree.Element, old etree.Token, repl []etree.Token) {
	if len(repl) == 1 && repl[0] == old {
		return
	}
	idx := old.Index()
	parent.RemoveChildAt(idx)
	for i, t := range repl {
		if p := t.Parent(); p != nil {
			p.RemoveChild(t)
		}
		parent.InsertChildAt(idx+i, t)
	}
}

// isBlankRun reports whether tokens hold nothing but whitespace
func isBlankRun(tokens []etree.Token) bool {
	for _, tok := range tokens {
		switch t := tok.(type) {
		case *etree.Element:
			return false
		case *etree.CharData:
			if !t.IsWhitespace() {
				return false
			}
		}
	}
	return true
}
