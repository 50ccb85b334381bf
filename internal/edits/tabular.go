package edits

import (
	"strings"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/parser"
)

// Reserved field names. They set control values and never become
// substitutions.
const (
	FieldTemplate = "kbb_template"
	FieldOutput   = "kbb_output"
	FieldTinted   = "kbb_tinted"
)

const (
	directiveReplace = "replace"
	valueRemove      = "remove"
)

// FromGroup builds the spec for the variant in column col of a row group.
// Each row's field column decides where its value goes:
//
//	key              top-level substitution
//	dst: Replace     replacement; value is "src:path" or "Remove"
//	dst: key[;key]   substitutions inside dst's replacement, matched
//	                 positionally against ";"-separated values
//	: key            as above, for the most recent replacement
//
// Rows with an empty value for this variant are skipped.
func FromGroup(g parser.Group, col int, source string) (*Spec, error) {
	b := NewBuilder(source, g.Header.Cell(col))

	for _, row := range g.Rows {
		value := row.Cell(col)
		if value == "" {
			continue
		}
		field := row.Cell(1)

		switch keys.Sanitize(field) {
		case FieldTemplate:
			b.SetTemplate(value, row.Line)
			continue
		case FieldOutput:
			b.SetOutput(value)
			continue
		case FieldTinted:
			b.SetTinted(true)
			continue
		}

		dest, directive, scoped := strings.Cut(field, ":")
		if !scoped {
			if err := b.Substitute(field, value, row.Line); err != nil {
				return nil, err
			}
			continue
		}
		if err := addScoped(b, dest, directive, value, row.Line); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func addScoped(b *Builder, dest, directive, value string, line int) error {
	d := keys.Sanitize(dest)
	directive = strings.TrimSpace(directive)
	if directive == "" {
		return b.fail(ErrMalformed, line, d, "missing directive after ':'")
	}

	if keys.Equal(directive, directiveReplace) {
		src, path, ok := strings.Cut(value, ":")
		switch {
		case !ok && keys.Equal(value, valueRemove):
			return b.Replace(d, Remove{}, line)
		case !ok:
			return b.fail(ErrMalformed, line, d, "replace value must be src:path or Remove")
		}
		return b.Replace(d, Replace{SourceID: src, SourcePath: strings.TrimSpace(path)}, line)
	}

	names := strings.Split(directive, ";")
	values := []string{value}
	if len(names) > 1 {
		values = strings.Split(value, ";")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
	}
	if len(names) != len(values) {
		return b.fail(ErrMalformed, line, d, "number of ';' keys and values differ")
	}
	for i, name := range names {
		if err := b.SubstituteFor(d, name, values[i], line); err != nil {
			return err
		}
	}
	return nil
}
