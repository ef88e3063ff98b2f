package xmltext

import (
	"strconv"

	"github.com/beevik/etree"
)

// corePriority is the priority of the core template set, above every DocBook
// template
const corePriority = 99

// DocBookTemplates maps the structural legacy vocabulary onto DocBook
func DocBookTemplates() []Template {
	return []Template{
		{Match: "section", Apply: convertSection},
		{Match: "header", Apply: convertHeader},
		{Match: "paragraph", Apply: convertParagraph},
		{Match: "paragraph", When: hasLines, Priority: 1, Apply: convertLines},
		{Match: "line", Apply: func(t *Transformation, el, out *etree.Element) { t.ApplyChildren(el, out) }},
		{Match: "strong", Apply: emphasis("strong")},
		{Match: "emphasize", Apply: emphasis("")},
		{Match: "link", Apply: convertLink},
		{Match: "anchor", Apply: convertAnchor},
		{Match: "ul", Apply: element("itemizedlist")},
		{Match: "ol", Apply: element("orderedlist")},
		{Match: "li", Apply: element("listitem")},
		{Match: "table", Apply: convertTable},
		{Match: "tr", Apply: element("tr")},
		{Match: "th", Apply: cell("th")},
		{Match: "td", Apply: cell("td")},
		{Match: "literal", Apply: convertLiteral},
		{Match: "custom", Apply: convertCustom},
	}
}

// CoreTemplates holds the eZ specific rules: embeds and the custom tags
// that have a native RichText rendering
func CoreTemplates() []Template {
	return []Template{
		{Match: "custom", When: customNamed("underline"), Priority: corePriority, Apply: emphasis("underlined")},
		{Match: "custom", When: customNamed("strike"), Priority: corePriority, Apply: emphasis("strikedthrough")},
		{Match: "custom", When: customNamed("sub"), Priority: corePriority, Apply: element("subscript")},
		{Match: "custom", When: customNamed("sup"), Priority: corePriority, Apply: element("superscript")},
		{Match: "embed", Priority: corePriority, Apply: convertEmbed("ezembed")},
		{Match: "embed-inline", Priority: corePriority, Apply: convertEmbed("ezembedinline")},
	}
}

func convertSection(t *Transformation, el, out *etree.Element) {
	if t.Depth() > 0 {
		// nested sections only raise the level of their headers
		t.Nested(func() { t.ApplyChildren(el, out) })
		return
	}

	sec := out.CreateElement("section")
	sec.CreateAttr("xmlns", nsDocBook)
	sec.CreateAttr("xmlns:xlink", nsXLink)
	sec.CreateAttr("xmlns:ezxhtml", nsEzXHTML)
	sec.CreateAttr("xmlns:ezcustom", nsEzCustom)
	sec.CreateAttr("version", richTextVersion)
	t.Nested(func() { t.ApplyChildren(el, sec) })
}

func convertHeader(t *Transformation, el, out *etree.Element) {
	// the root section is a wrapper, headers of its direct subsections are
	// level 1
	level := t.Depth() - 1
	if level < 1 {
		level = 1
	}
	title := out.CreateElement("title")
	title.CreateAttr("ezxhtml:level", strconv.Itoa(level))
	copyAttr(el, "anchor_name", title, "xml:id")
	copyAttr(el, "class", title, "ezxhtml:class")
	copyAttr(el, "align", title, "ezxhtml:textalign")
	t.ApplyChildren(el, title)
}

func convertParagraph(t *Transformation, el, out *etree.Element) {
	para := out.CreateElement("para")
	copyAttr(el, "class", para, "ezxhtml:class")
	copyAttr(el, "align", para, "ezxhtml:textalign")
	t.ApplyChildren(el, para)
}

func hasLines(el *etree.Element) bool {
	for _, child := range el.ChildElements() {
		if child.Space == "" && child.Tag == "line" {
			return true
		}
	}
	return false
}

// convertLines renders a paragraph of line elements as a literallayout.
// Line breaks are emitted unescaped and become literal newlines during
// normalization.
func convertLines(t *Transformation, el, out *etree.Element) {
	layout := out.CreateElement("literallayout")
	layout.CreateAttr("class", "normal")
	copyAttr(el, "class", layout, "ezxhtml:class")
	copyAttr(el, "align", layout, "ezxhtml:textalign")

	first := true
	for _, tok := range el.Child {
		switch c := tok.(type) {
		case *etree.Element:
			if c.Space == "" && c.Tag == "line" {
				if !first {
					raw(layout, "&#xA;")
				}
				first = false
				t.ApplyChildren(c, layout)
				continue
			}
			t.Apply(c, layout)
		case *etree.CharData:
			layout.CreateText(c.Data)
		}
	}
}

func emphasis(role string) func(*Transformation, *etree.Element, *etree.Element) {
	return func(t *Transformation, el, out *etree.Element) {
		e := out.CreateElement("emphasis")
		if role != "" {
			e.CreateAttr("role", role)
		}
		copyAttr(el, "class", e, "ezxhtml:class")
		t.ApplyChildren(el, e)
	}
}

// element renames el to tag, keeping its class
func element(tag string) func(*Transformation, *etree.Element, *etree.Element) {
	return func(t *Transformation, el, out *etree.Element) {
		e := out.CreateElement(tag)
		copyAttr(el, "class", e, "ezxhtml:class")
		t.ApplyChildren(el, e)
	}
}

func convertLink(t *Transformation, el, out *etree.Element) {
	link := out.CreateElement("link")
	writeLinkAttrs(func(key string) (string, bool) { return attr(el, key) }, link)
	if v, ok := attrNS(el, nsLegacyXHTML, "title"); ok {
		link.CreateAttr("xlink:title", v)
	}
	t.ApplyChildren(el, link)
}

// writeLinkAttrs maps legacy link attributes, read through get, onto the
// xlink attributes of out
func writeLinkAttrs(get func(string) (string, bool), out *etree.Element) {
	if href := linkTarget(get); href != "" {
		out.CreateAttr("xlink:href", href)
	}
	if target, ok := get("target"); ok {
		show := "none"
		if target == "_blank" {
			show = "new"
		}
		out.CreateAttr("xlink:show", show)
	}
	if v, ok := get("title"); ok {
		out.CreateAttr("xlink:title", v)
	}
	if v, ok := get("id"); ok && v != "" {
		out.CreateAttr("xml:id", v)
	}
	if v, ok := get("class"); ok && v != "" {
		out.CreateAttr("ezxhtml:class", v)
	}
}

// linkTarget builds the RichText href of a legacy link
func linkTarget(get func(string) (string, bool)) string {
	var href string
	if v, ok := get("url_id"); ok && v != "" {
		href = "ezurl://" + v
	} else if v, ok := get("object_id"); ok && v != "" {
		href = "ezcontent://" + v
	} else if v, ok := get("node_id"); ok && v != "" {
		href = "ezlocation://" + v
	} else if v, ok := get("href"); ok {
		href = v
	}
	if anchor, ok := get("anchor_name"); ok && anchor != "" {
		href += "#" + anchor
	}
	return href
}

func convertAnchor(_ *Transformation, el, out *etree.Element) {
	a := out.CreateElement("anchor")
	copyAttr(el, "name", a, "xml:id")
}

func convertTable(t *Transformation, el, out *etree.Element) {
	table := out.CreateElement("informaltable")
	copyAttr(el, "class", table, "ezxhtml:class")
	copyAttr(el, "width", table, "ezxhtml:width")
	copyAttr(el, "border", table, "ezxhtml:border")
	body := table.CreateElement("tbody")
	t.ApplyChildren(el, body)
}

func cell(tag string) func(*Transformation, *etree.Element, *etree.Element) {
	return func(t *Transformation, el, out *etree.Element) {
		c := out.CreateElement(tag)
		copyAttr(el, "class", c, "ezxhtml:class")
		copyAttr(el, "align", c, "ezxhtml:textalign")
		if v, ok := attrNS(el, nsLegacyXHTML, "colspan"); ok {
			c.CreateAttr("colspan", v)
		}
		if v, ok := attrNS(el, nsLegacyXHTML, "rowspan"); ok {
			c.CreateAttr("rowspan", v)
		}
		if v, ok := attrNS(el, nsLegacyXHTML, "width"); ok {
			c.CreateAttr("ezxhtml:width", v)
		}
		t.ApplyChildren(el, c)
	}
}

func convertLiteral(_ *Transformation, el, out *etree.Element) {
	pl := out.CreateElement("programlisting")
	copyAttr(el, "class", pl, "ezxhtml:class")
	pl.CreateText(textContent(el))
}

func convertCustom(t *Transformation, el, out *etree.Element) {
	tag := "eztemplate"
	if inInlineContext(el) {
		tag = "eztemplateinline"
	}
	tpl := out.CreateElement(tag)
	copyAttr(el, "name", tpl, "name")
	if len(el.Child) > 0 {
		t.ApplyChildren(el, tpl.CreateElement("ezcontent"))
	}

	var config [][2]string
	for _, a := range attrsNS(el, nsLegacyCustom) {
		config = append(config, [2]string{a.Key, a.Value})
	}
	writeConfig(tpl, config)
}

// Legacy elements whose content is inline
var inlineParents = map[string]bool{
	"paragraph": true,
	"header":    true,
	"line":      true,
	"strong":    true,
	"emphasize": true,
	"link":      true,
}

func inInlineContext(el *etree.Element) bool {
	p := el.Parent()
	if p == nil || p.Space != "" {
		return false
	}
	if p.Tag == "custom" {
		return !isBlock(p)
	}
	return inlineParents[p.Tag]
}

func customNamed(name string) func(*etree.Element) bool {
	return func(el *etree.Element) bool {
		v, _ := attr(el, "name")
		return v == name
	}
}

func convertEmbed(tag string) func(*Transformation, *etree.Element, *etree.Element) {
	return func(_ *Transformation, el, out *etree.Element) {
		embed := out.CreateElement(tag)
		if v, ok := attr(el, "object_id"); ok && v != "" {
			embed.CreateAttr("xlink:href", "ezcontent://"+v)
		} else if v, ok := attr(el, "node_id"); ok && v != "" {
			embed.CreateAttr("xlink:href", "ezlocation://"+v)
		}
		copyAttr(el, "view", embed, "view")
		copyAttr(el, "id", embed, "xml:id")
		copyAttr(el, "class", embed, "ezxhtml:class")
		copyAttr(el, "align", embed, "ezxhtml:align")

		var config [][2]string
		if v, ok := attr(el, "size"); ok {
			config = append(config, [2]string{"size", v})
		}
		for _, a := range attrsNS(el, nsLegacyCustom) {
			config = append(config, [2]string{a.Key, a.Value})
		}
		writeConfig(embed, config)

		linked := func(key string) (string, bool) { return attr(el, embedLinkPrefix+key) }
		if linkTarget(linked) != "" {
			writeLinkAttrs(linked, embed.CreateElement("ezlink"))
		}
	}
}

func writeConfig(out *etree.Element, values [][2]string) {
	if len(values) == 0 {
		return
	}
	cfg := out.CreateElement("ezconfig")
	for _, kv := range values {
		v := cfg.CreateElement("ezvalue")
		v.CreateAttr("key", kv[0])
		v.SetText(kv[1])
	}
}

// copyAttr copies the unqualified attribute from of src to out as to, when
// present and non-empty
func copyAttr(src *etree.Element, from string, out *etree.Element, to string) {
	if v, ok := attr(src, from); ok && v != "" {
		out.CreateAttr(to, v)
	}
}
