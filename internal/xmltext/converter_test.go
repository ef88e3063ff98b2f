package xmltext

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const openSection = `<section xmlns="http://docbook.org/ns/docbook" xmlns:xlink="http://www.w3.org/1999/xlink" xmlns:ezxhtml="http://ez.no/xmlns/ezpublish/docbook/xhtml" xmlns:ezcustom="http://ez.no/xmlns/ezpublish/docbook/custom" version="5.0-variant ezpublish-1.0">`

// richText wraps body into a complete converted document
func richText(body string) string {
	return xmlDeclaration + "\n" + openSection + body + "</section>\n"
}

func TestConvertEmptyValue(t *testing.T) {
	conv := NewConverter(IgnoreTemporary)

	for _, input := range []string{"", LegacyEmptyValue} {
		res, err := conv.Convert(input)
		if err != nil {
			t.Fatalf("Convert(%q) failed: %v", input, err)
		}
		if res.Output != EmptyValue {
			t.Errorf("Convert(%q) = %q, want %q", input, res.Output, EmptyValue)
		}
		if len(res.Errors) != 0 {
			t.Errorf("Convert(%q) reported validation errors: %v", input, res.Errors)
		}
	}
}

func TestConvertParagraphWithComment(t *testing.T) {
	conv := NewConverter(IgnoreTemporary)

	res, err := conv.Convert("<section><para>Hello</para><!--note--></section>")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if strings.Contains(res.Output, "<!--") {
		t.Errorf("output still contains a comment: %s", res.Output)
	}
	if n := strings.Count(res.Output, "<para>Hello</para>"); n != 1 {
		t.Errorf("expected one paragraph with text Hello, found %d in %s", n, res.Output)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no validation errors, got %v", res.Errors)
	}
	if want := richText("<para>Hello</para>"); res.Output != want {
		t.Errorf("Convert() mismatch (-want +got):\n%s", cmp.Diff(want, res.Output))
	}
}

func TestConvertStripsAllComments(t *testing.T) {
	conv := NewConverter(IgnoreTemporary)

	inputs := []string{
		`<!--top--><section><paragraph>a<!--inline--><strong>b<!--deep--></strong></paragraph></section>`,
		`<section><!--first--><ul><!--list--><li><paragraph>x</paragraph><!--item--></li></ul></section>`,
		`<section><section><header>T<!--h--></header><paragraph><line>a<!--l--></line><line>b</line></paragraph></section></section>`,
	}

	for _, input := range inputs {
		res, err := conv.Convert(input)
		if err != nil {
			t.Fatalf("Convert(%q) failed: %v", input, err)
		}
		if strings.Contains(res.Output, "<!--") {
			t.Errorf("Convert(%q) kept a comment: %s", input, res.Output)
		}
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "pretty printed input",
			input: `<?xml version="1.0" encoding="utf-8"?>
<section>
  <paragraph>Hi</paragraph>
</section>`,
			want: richText("<para>Hi</para>"),
		},
		{
			name:  "inline formatting",
			input: `<section><paragraph class="intro">a <strong>b</strong> <emphasize>c</emphasize></paragraph></section>`,
			want:  richText(`<para ezxhtml:class="intro">a <emphasis role="strong">b</emphasis> <emphasis>c</emphasis></para>`),
		},
		{
			name:  "block elements are lifted out of paragraphs",
			input: `<section><paragraph class="x">before<ul><li><paragraph>item</paragraph></li></ul>after</paragraph></section>`,
			want:  richText(`<para ezxhtml:class="x">before</para><itemizedlist><listitem><para>item</para></listitem></itemizedlist><para ezxhtml:class="x">after</para>`),
		},
		{
			name:  "loose list item content is wrapped",
			input: `<section><paragraph><ol><li>one</li><li>two</li></ol></paragraph></section>`,
			want:  richText(`<orderedlist><listitem><para>one</para></listitem><listitem><para>two</para></listitem></orderedlist>`),
		},
		{
			name:  "lines become a literal layout",
			input: `<section><paragraph><line>one</line><line>two</line></paragraph></section>`,
			want:  richText("<literallayout class=\"normal\">one\ntwo</literallayout>"),
		},
		{
			name:  "headers take their level from section nesting",
			input: `<section><section><header anchor_name="a">A</header><section><header>B</header></section></section></section>`,
			want:  richText(`<title ezxhtml:level="1" xml:id="a">A</title><title ezxhtml:level="2">B</title>`),
		},
		{
			name:  "links",
			input: `<section><paragraph><link url_id="3">a</link> <link object_id="4" target="_blank">b</link> <link node_id="5" anchor_name="top">c</link> <link href="http://example.com" title="T">d</link></paragraph></section>`,
			want:  richText(`<para><link xlink:href="ezurl://3">a</link> <link xlink:href="ezcontent://4" xlink:show="new">b</link> <link xlink:href="ezlocation://5#top">c</link> <link xlink:href="http://example.com" xlink:title="T">d</link></para>`),
		},
		{
			name:  "anchors",
			input: `<section><paragraph><anchor name="here"/>text</paragraph></section>`,
			want:  richText(`<para><anchor xml:id="here"/>text</para>`),
		},
		{
			name:  "embed",
			input: `<section><paragraph><embed object_id="42" view="embed" size="medium" align="right"/></paragraph></section>`,
			want:  richText(`<ezembed xlink:href="ezcontent://42" view="embed" ezxhtml:align="right"><ezconfig><ezvalue key="size">medium</ezvalue></ezconfig></ezembed>`),
		},
		{
			name:  "inline embed",
			input: `<section><paragraph>see <embed-inline node_id="9"/></paragraph></section>`,
			want:  richText(`<para>see <ezembedinline xlink:href="ezlocation://9"/></para>`),
		},
		{
			name:  "linked embed",
			input: `<section><paragraph><link url_id="7" target="_blank"><embed object_id="42"/></link></paragraph></section>`,
			want:  richText(`<ezembed xlink:href="ezcontent://42"><ezlink xlink:href="ezurl://7" xlink:show="new"/></ezembed>`),
		},
		{
			name:  "table",
			input: `<section xmlns:xhtml="http://ez.no/namespaces/ezpublish3/xhtml/"><table width="100%"><tr><th>H</th><td xhtml:colspan="2">C</td></tr></table></section>`,
			want:  richText(`<informaltable ezxhtml:width="100%"><tbody><tr><th><para>H</para></th><td colspan="2"><para>C</para></td></tr></tbody></informaltable>`),
		},
		{
			name:  "literal",
			input: `<section><paragraph><literal class="html">&lt;b&gt;x&lt;/b&gt;</literal></paragraph></section>`,
			want:  richText(`<programlisting ezxhtml:class="html">&lt;b&gt;x&lt;/b&gt;</programlisting>`),
		},
		{
			name:  "inline custom tags",
			input: `<section><paragraph>x<custom name="underline">u</custom><custom name="sup">2</custom></paragraph></section>`,
			want:  richText(`<para>x<emphasis role="underlined">u</emphasis><superscript>2</superscript></para>`),
		},
		{
			name:  "block custom tag",
			input: `<section xmlns:custom="http://ez.no/namespaces/ezpublish3/custom/"><paragraph><custom name="quote" custom:author="me"><paragraph>q</paragraph></custom></paragraph></section>`,
			want:  richText(`<eztemplate name="quote"><ezcontent><para>q</para></ezcontent><ezconfig><ezvalue key="author">me</ezvalue></ezconfig></eztemplate>`),
		},
		{
			name:  "declared legacy encoding",
			input: "<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><section><paragraph>caf\xe9</paragraph></section>",
			want:  richText("<para>café</para>"),
		},
	}

	conv := NewConverter(IgnoreTemporary)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conv.Convert(tt.input)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, res.Output); diff != "" {
				t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
			}
			if len(res.Errors) != 0 {
				t.Errorf("unexpected validation errors: %v", res.Errors)
			}
		})
	}
}

func TestConvertValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "missing link and embed targets",
			input: `<section><paragraph><link>x</link><embed view="embed"/></paragraph></section>`,
			want: []string{
				"/section/para[1]/link[1]: attribute 'xlink:href' is required",
				"/section/ezembed[1]: attribute 'xlink:href' is required",
			},
		},
		{
			name:  "unknown element",
			input: `<section><paragraph><blink>x</blink></paragraph></section>`,
			want:  []string{"/section/para[1]/blink[1]: unknown element 'blink'"},
		},
		{
			name:  "duplicate anchors",
			input: `<section><paragraph><anchor name="a"/><anchor name="a"/></paragraph></section>`,
			want:  []string{"/section/para[1]/anchor[2]: duplicate xml:id 'a' (first used at /section/para[1]/anchor[1])"},
		},
		{
			name:  "header nested too deep",
			input: `<section><section><section><section><section><section><section><section><header>deep</header></section></section></section></section></section></section></section></section>`,
			want:  []string{"/section/title[1]: title level '7' is out of range 1-6"},
		},
	}

	conv := NewConverter(IgnoreTemporary)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conv.Convert(tt.input)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, res.Errors); diff != "" {
				t.Errorf("validation errors mismatch (-want +got):\n%s", diff)
			}
			if res.Output == "" {
				t.Error("expected converted output despite validation errors")
			}
		})
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	input := `<section xmlns:custom="http://ez.no/namespaces/ezpublish3/custom/"><section><header>T</header>` +
		`<paragraph>a<ul><li>b</li></ul><link>broken</link><custom name="box" custom:a="1" custom:b="2">c</custom></paragraph>` +
		`<paragraph><embed object_id="x"/></paragraph></section></section>`

	conv := NewConverter(IgnoreTemporary)
	first, err := conv.Convert(input)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(first.Errors) == 0 {
		t.Fatal("expected validation errors for this input")
	}

	for i := 0; i < 10; i++ {
		again, err := NewConverter(IgnoreTemporary).Convert(input)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestConvertTemporaryParagraph(t *testing.T) {
	input := `<section xmlns:tmp="http://ez.no/namespaces/ezpublish3/temporary/"><paragraph tmp:temporary="true">Hello</paragraph></section>`

	kept, err := NewConverter(IgnoreTemporary).Convert(input)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if want := richText("<para>Hello</para>"); kept.Output != want {
		t.Errorf("IgnoreTemporary mismatch (-want +got):\n%s", cmp.Diff(want, kept.Output))
	}

	dropped, err := NewConverter(RespectTemporary).Convert(input)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if strings.Contains(dropped.Output, "Hello") {
		t.Errorf("RespectTemporary kept the temporary paragraph: %s", dropped.Output)
	}
	if dropped.Output != EmptyValue {
		t.Errorf("RespectTemporary = %q, want %q", dropped.Output, EmptyValue)
	}
}

func TestConvertMalformedInput(t *testing.T) {
	inputs := []string{
		"<section><paragraph",
		"not markup at all",
		"<section/><section/>",
		"<section><paragraph>a &bogus; b</paragraph></section>",
	}

	conv := NewConverter(IgnoreTemporary)
	for _, input := range inputs {
		_, err := conv.Convert(input)
		if err == nil {
			t.Errorf("Convert(%q) expected an error", input)
			continue
		}
		if !IsMalformedInput(err) {
			t.Errorf("Convert(%q) error %v is not a MalformedInputError", input, err)
		}
	}
}
