// Package xmltext converts legacy eZ Publish XmlText markup into the DocBook
// based RichText format.
//
// A conversion runs a fixed, ordered pipeline of stages over a parsed
// document tree:
//
//  1. parse (the empty string maps to LegacyEmptyValue)
//  2. CommentStripper removes every comment node
//  3. PreNormalizer expands legacy paragraph and list nesting (Expander)
//     and folds links around embeds into the embed (EmbedLinker)
//  4. Stylesheet maps the normalized tree onto the RichText vocabulary
//  5. a normalization pass re-serializes and re-parses the result, resolving
//     disabled-escaping markers into literal characters
//
// The stylesheet output is checked by a Validator before normalization.
// Validation problems are reported in Result.Errors and never abort a
// conversion.
//
//	conv := xmltext.NewConverter(xmltext.IgnoreTemporary)
//	res, err := conv.Convert(`<section><paragraph>Hello</paragraph></section>`)
//	if err != nil {
//		// err is a *MalformedInputError for unparseable input
//	}
//	fmt.Println(res.Output, res.Errors)
package xmltext
