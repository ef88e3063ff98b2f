package xmltext

import (
	"fmt"

	"github.com/beevik/etree"
)

// Stage is one step of the conversion pipeline
type Stage interface {
	Transform(doc *etree.Document) (*etree.Document, error)
}

// Pipeline runs stages in order, feeding each the output of the previous one
type Pipeline []Stage

// Transform implements Stage
func (p Pipeline) Transform(doc *etree.Document) (*etree.Document, error) {
	var err error
	for _, stage := range p {
		doc, err = stage.Transform(doc)
		if err != nil {
			return nil, fmt.Errorf("%T: %w", stage, err)
		}
	}
	return doc, nil
}

// PreNormalizer prepares a legacy tree for the stylesheet: links around
// embeds are folded into the embed first, then paragraph nesting is expanded
type PreNormalizer struct {
	Expander Expander
	Linker   EmbedLinker
}

// Transform implements Stage
func (n PreNormalizer) Transform(doc *etree.Document) (*etree.Document, error) {
	return Pipeline{n.Linker, n.Expander}.Transform(doc)
}

// Result is the outcome of one conversion
type Result struct {
	Output string
	// Errors lists validation problems in the order they were found
	Errors []string
}

// Converter turns legacy XmlText values into RichText
type Converter struct {
	stages    Pipeline
	validator *Validator
}

// NewConverter returns a converter running the default pipeline with the
// given expansion mode
func NewConverter(mode ExpansionMode) *Converter {
	return NewConverterWithStages(Pipeline{
		CommentStripper{},
		PreNormalizer{Expander: Expander{Mode: mode}},
		DefaultStylesheet(),
	}, NewValidator())
}

// NewConverterWithStages returns a converter running a custom pipeline
func NewConverterWithStages(stages Pipeline, validator *Validator) *Converter {
	return &Converter{stages: stages, validator: validator}
}

// Convert converts one stored legacy value. The empty string converts as
// LegacyEmptyValue. A *MalformedInputError is returned when raw cannot be
// parsed; validation problems are reported in Result.Errors instead.
func (c *Converter) Convert(raw string) (Result, error) {
	if raw == "" {
		raw = LegacyEmptyValue
	}

	doc, err := parseLegacy(raw)
	if err != nil {
		return Result{}, err
	}

	converted, err := c.stages.Transform(doc)
	if err != nil {
		return Result{}, fmt.Errorf("failed to transform document: %w", err)
	}

	var errs []string
	if c.validator != nil {
		errs = c.validator.Validate(converted)
	}

	out, err := normalize(converted)
	if err != nil {
		return Result{}, err
	}

	return Result{Output: out, Errors: errs}, nil
}
