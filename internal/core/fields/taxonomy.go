package fields

import (
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerTaxonomies(reg *core.Registry) {
	reg.Register(core.FieldSpec{
		Name:      "categories",
		AppliesTo: notVariation,
		Current:   func(rec *core.Record) string { return core.JoinTermNames(rec.Categories) },
		Validate:  termList(core.TaxonomyCategory, core.CodeInvalidCategoryFormat, core.CodeCategoryNotFound),
		Apply:     func(rec *core.Record, v any) { rec.Categories = v.([]core.Term) },
	})
	reg.Register(core.FieldSpec{
		Name:      "tags",
		AppliesTo: notVariation,
		Current:   func(rec *core.Record) string { return core.JoinTermNames(rec.Tags) },
		Validate:  termList(core.TaxonomyTag, core.CodeInvalidTagFormat, core.CodeTagNotFound),
		Apply:     func(rec *core.Record, v any) { rec.Tags = v.([]core.Term) },
	})
	reg.Register(core.FieldSpec{
		Name:     "attributes",
		Current:  func(rec *core.Record) string { return core.RenderAttributes(rec.Attributes) },
		Validate: validateAttributes,
		Apply:    func(rec *core.Record, v any) { rec.Attributes = v.([]core.Attribute) },
	})
}

// termList resolves a pipe-delimited list of term names.
//
// Each unresolved name records its own error; the resolved ones are still
// applied. Empty clears the list. A non-empty list that resolves nothing is
// not applied.
func termList(taxonomy string, formatCode, notFoundCode core.ErrorCode) core.ValidateFunc {
	return func(raw string, fc *core.FieldContext) (any, bool) {
		if strings.TrimSpace(raw) == "" {
			return []core.Term{}, true
		}
		names := core.SplitList(raw)
		if len(names) == 0 {
			fc.Reject(formatCode, raw, raw)
			return nil, false
		}

		var terms []core.Term
		seen := make(map[int64]bool)
		for _, name := range names {
			term, err := resolveTerm(fc.Context(), fc.Taxonomy(), taxonomy, name)
			if err != nil {
				fc.LookupFailed(name, err)
				continue
			}
			if term == nil {
				fc.Reject(notFoundCode, name, name)
				continue
			}
			if !seen[term.ID] {
				seen[term.ID] = true
				terms = append(terms, *term)
			}
		}
		if len(terms) == 0 {
			return nil, false
		}
		return terms, true
	}
}

// validateAttributes resolves the attributes JSON cell into a complete
// attribute set. Keys naming a vocabulary must use existing terms; any other
// key becomes a custom attribute with its values taken verbatim. A variation
// is defined by its attributes, so its set may not be emptied.
func validateAttributes(raw string, fc *core.FieldContext) (any, bool) {
	variation := fc.Record().Type == core.TypeVariation
	if strings.TrimSpace(raw) == "" {
		if variation {
			fc.Reject(core.CodeVariationMissingAttributes, raw)
		}
		return nil, false
	}
	inputs, code := core.ParseAttributes(raw)
	if code != "" {
		fc.Reject(code, raw)
		return nil, false
	}
	if len(inputs) == 0 && variation {
		fc.Reject(core.CodeVariationMissingAttributes, raw)
		return nil, false
	}

	vocabs, err := fc.Taxonomy().AttributeVocabularies(fc.Context())
	if err != nil {
		fc.LookupFailed(raw, err)
		return nil, false
	}

	var attrs []core.Attribute
	for _, in := range inputs {
		vocab := findVocabulary(vocabs, in.Name)
		if vocab == nil && strings.HasPrefix(strings.ToLower(in.Name), "pa_") {
			fc.Reject(core.CodeAttributeNotFound, in.Name, in.Name)
			continue
		}

		attr := core.Attribute{Name: in.Name, Visible: true}
		if prev := findAttribute(fc.Record().Attributes, in.Name); prev != nil {
			attr.Visible = prev.Visible
			attr.Variation = prev.Variation
		}

		if vocab == nil {
			attr.Options = in.Values
		} else {
			attr.Name = vocabularyLabel(vocab)
			attr.Taxonomy = vocab.Taxonomy
			for _, value := range in.Values {
				term, err := resolveTerm(fc.Context(), fc.Taxonomy(), vocab.Taxonomy, value)
				if err != nil {
					fc.LookupFailed(value, err)
					continue
				}
				if term == nil {
					fc.Reject(core.CodeInvalidAttributeTerm, value, value, in.Name)
					continue
				}
				attr.Options = append(attr.Options, term.Name)
			}
		}

		if len(attr.Options) == 0 {
			continue
		}
		attr.Position = len(attrs)
		attrs = append(attrs, attr)
	}

	if len(attrs) == 0 {
		return nil, false
	}
	return attrs, true
}

func findVocabulary(vocabs []core.AttributeVocabulary, key string) *core.AttributeVocabulary {
	key = strings.ToLower(strings.TrimSpace(key))
	for i := range vocabs {
		v := &vocabs[i]
		switch key {
		case strings.ToLower(v.Name), strings.ToLower(v.Label), strings.ToLower(v.Taxonomy), "pa_" + strings.ToLower(v.Name):
			return v
		}
	}
	return nil
}

func findAttribute(attrs []core.Attribute, name string) *core.Attribute {
	for i := range attrs {
		if strings.EqualFold(attrs[i].Name, name) || strings.EqualFold(attrs[i].Taxonomy, name) {
			return &attrs[i]
		}
	}
	return nil
}

func vocabularyLabel(v *core.AttributeVocabulary) string {
	if v.Label != "" {
		return v.Label
	}
	return v.Name
}
