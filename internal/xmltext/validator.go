package xmltext

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// elementModel is the content model of one RichText element
type elementModel struct {
	children map[string]bool
	text     bool
	required []string
	values   map[string][]string // allowed values of enumerated attributes
}

func set(groups ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, g := range groups {
		for _, name := range g {
			out[name] = true
		}
	}
	return out
}

var (
	inlineElements = []string{"emphasis", "link", "anchor", "ezembedinline", "eztemplateinline", "subscript", "superscript"}
	blockElements  = []string{"para", "itemizedlist", "orderedlist", "informaltable", "programlisting", "literallayout", "ezembed", "eztemplate"}
)

// richTextSchema lists every element a RichText document may contain
var richTextSchema = map[string]elementModel{
	"section":          {children: set(blockElements, []string{"title", "section"}), required: []string{"version"}},
	"title":            {children: set(inlineElements), text: true, required: []string{"ezxhtml:level"}},
	"para":             {children: set(inlineElements), text: true},
	"literallayout":    {children: set(inlineElements), text: true, values: map[string][]string{"class": {"normal"}}},
	"emphasis":         {children: set(inlineElements), text: true, values: map[string][]string{"role": {"strong", "underlined", "strikedthrough"}}},
	"subscript":        {children: set(inlineElements), text: true},
	"superscript":      {children: set(inlineElements), text: true},
	"link":             {children: set([]string{"emphasis", "anchor", "ezembedinline", "subscript", "superscript"}), text: true, required: []string{"xlink:href"}, values: map[string][]string{"xlink:show": {"new", "none"}}},
	"anchor":           {required: []string{"xml:id"}},
	"itemizedlist":     {children: set([]string{"listitem"})},
	"orderedlist":      {children: set([]string{"listitem"})},
	"listitem":         {children: set(blockElements)},
	"informaltable":    {children: set([]string{"tbody"})},
	"tbody":            {children: set([]string{"tr"})},
	"tr":               {children: set([]string{"th", "td"})},
	"th":               {children: set(blockElements)},
	"td":               {children: set(blockElements)},
	"programlisting":   {text: true},
	"ezembed":          {children: set([]string{"ezconfig", "ezlink"}), required: []string{"xlink:href"}},
	"ezembedinline":    {children: set([]string{"ezconfig", "ezlink"}), required: []string{"xlink:href"}},
	"ezlink":           {required: []string{"xlink:href"}, values: map[string][]string{"xlink:show": {"new", "none"}}},
	"ezconfig":         {children: set([]string{"ezvalue"})},
	"ezvalue":          {text: true, required: []string{"key"}},
	"eztemplate":       {children: set([]string{"ezcontent", "ezconfig"}), required: []string{"name"}},
	"eztemplateinline": {children: set([]string{"ezcontent", "ezconfig"}), required: []string{"name"}},
	"ezcontent":        {children: set(blockElements, inlineElements), text: true},
}

var (
	embedTarget = regexp.MustCompile(`^ez(content|location)://[0-9]+$`)
	ezLinkURI   = regexp.MustCompile(`^ez(url|content|location)://[0-9]+(#.*)?$`)
)

// Rule checks one element of a document and reports problems through report
type Rule func(el *etree.Element, path string, report func(format string, args ...any))

// Validator checks converted documents against the RichText content model
// and a set of assertion rules
type Validator struct {
	schema map[string]elementModel
	rules  []Rule
}

// NewValidator returns a validator using the RichText schema and the
// default assertion rules
func NewValidator() *Validator {
	return &Validator{
		schema: richTextSchema,
		rules:  []Rule{checkEmbedTarget, checkLinkTarget, checkTitleLevel},
	}
}

type validation struct {
	errs []string
	ids  map[string]string // xml:id -> path of its first use
}

func (s *validation) addf(format string, args ...any) {
	s.errs = append(s.errs, fmt.Sprintf(format, args...))
}

// Validate returns every problem found in doc, in document order. An empty
// result means the document is valid.
func (v *Validator) Validate(doc *etree.Document) []string {
	s := &validation{ids: make(map[string]string)}

	root := doc.Root()
	if root == nil {
		s.addf("document has no root element")
		return s.errs
	}
	path := "/" + root.Tag
	if root.Tag != "section" {
		s.addf("%s: root element must be 'section', found '%s'", path, root.Tag)
		return s.errs
	}
	if ns := lookupNamespace(root, root.Space); ns != nsDocBook {
		s.addf("%s: root element must be in namespace %s, found '%s'", path, nsDocBook, ns)
	}
	if version, ok := hasAttr(root, "version"); ok && version != richTextVersion {
		s.addf("%s: unsupported version '%s'", path, version)
	}

	v.walk(s, root, path)
	return s.errs
}

func (v *Validator) walk(s *validation, el *etree.Element, path string) {
	model := v.schema[el.Tag]

	for _, key := range model.required {
		if _, ok := hasAttr(el, key); !ok {
			s.addf("%s: attribute '%s' is required", path, key)
		}
	}
	for _, allowed := range sortedValues(model.values) {
		if val, ok := hasAttr(el, allowed.key); ok && !contains(allowed.values, val) {
			s.addf("%s: attribute '%s' has invalid value '%s'", path, allowed.key, val)
		}
	}
	if id, ok := hasAttr(el, "xml:id"); ok {
		if first, seen := s.ids[id]; seen {
			s.addf("%s: duplicate xml:id '%s' (first used at %s)", path, id, first)
		} else {
			s.ids[id] = path
		}
	}
	for _, rule := range v.rules {
		rule(el, path, s.addf)
	}

	positions := make(map[string]int)
	reportedText := false
	for _, tok := range el.Child {
		switch c := tok.(type) {
		case *etree.CharData:
			if !model.text && !c.IsWhitespace() && !reportedText {
				s.addf("%s: text is not allowed in '%s'", path, el.Tag)
				reportedText = true
			}
		case *etree.Element:
			positions[c.Tag]++
			childPath := fmt.Sprintf("%s/%s[%d]", path, c.Tag, positions[c.Tag])
			if _, known := v.schema[c.Tag]; !known || c.Space != "" {
				s.addf("%s: unknown element '%s'", childPath, qualifiedName(c))
				continue
			}
			if !model.children[c.Tag] {
				s.addf("%s: element '%s' is not allowed in '%s'", childPath, c.Tag, el.Tag)
			}
			v.walk(s, c, childPath)
		}
	}
}

type attrValues struct {
	key    string
	values []string
}

// sortedValues returns the enumerated attributes of a model in a stable
// order
func sortedValues(values map[string][]string) []attrValues {
	out := make([]attrValues, 0, len(values))
	for k, v := range values {
		out = append(out, attrValues{key: k, values: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func qualifiedName(el *etree.Element) string {
	if el.Space == "" {
		return el.Tag
	}
	return el.Space + ":" + el.Tag
}

func checkEmbedTarget(el *etree.Element, path string, report func(string, ...any)) {
	if el.Tag != "ezembed" && el.Tag != "ezembedinline" {
		return
	}
	if href, ok := hasAttr(el, "xlink:href"); ok && !embedTarget.MatchString(href) {
		report("%s: invalid embed target '%s'", path, href)
	}
}

func checkLinkTarget(el *etree.Element, path string, report func(string, ...any)) {
	if el.Tag != "link" && el.Tag != "ezlink" {
		return
	}
	href, ok := hasAttr(el, "xlink:href")
	if !ok {
		return
	}
	switch {
	case strings.TrimSpace(href) == "":
		report("%s: attribute 'xlink:href' must not be empty", path)
	case strings.HasPrefix(href, "ez") && strings.Contains(href, "://") && !ezLinkURI.MatchString(href):
		report("%s: invalid link target '%s'", path, href)
	}
}

func checkTitleLevel(el *etree.Element, path string, report func(string, ...any)) {
	if el.Tag != "title" {
		return
	}
	level, ok := hasAttr(el, "ezxhtml:level")
	if !ok {
		return
	}
	if n, err := strconv.Atoi(level); err != nil || n < 1 || n > 6 {
		report("%s: title level '%s' is out of range 1-6", path, level)
	}
}
