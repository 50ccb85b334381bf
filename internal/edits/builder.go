package edits

import (
	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
)

// Builder accumulates declarations, in order, into a Spec. It remembers the
// most recently declared destination so nested substitutions can omit it.
type Builder struct {
	source  string
	variant string

	subs   SubstitutionMap
	reps   ReplacementMap
	cursor string

	template     string
	templateLine int
	output       string
	tinted       bool
}

// NewBuilder starts an empty spec. source and variant only label errors and
// the resulting Spec.
func NewBuilder(source, variant string) *Builder {
	return &Builder{
		source:  source,
		variant: variant,
		subs:    SubstitutionMap{},
		reps:    ReplacementMap{},
	}
}

func (b *Builder) fail(kind error, line int, key, msg string) error {
	return &ParseError{
		Kind:    kind,
		Source:  b.source,
		Line:    line,
		Variant: b.variant,
		Key:     key,
		Message: msg,
	}
}

// Substitute adds a top-level substitution.
func (b *Builder) Substitute(key, value string, line int) error {
	k := keys.Sanitize(key)
	if k == "" {
		return b.fail(ErrMalformed, line, "", "empty substitution key")
	}
	if _, ok := b.subs[k]; ok {
		return b.fail(ErrDuplicateKey, line, k, "")
	}
	b.subs[k] = value
	return nil
}

// SubstituteFor adds a substitution scoped to the replacement for dest. An
// empty dest means the most recently declared replacement. The destination
// must already be declared.
func (b *Builder) SubstituteFor(dest, key, value string, line int) error {
	d := keys.Sanitize(dest)
	if d == "" {
		d = b.cursor
	}
	if d == "" {
		return b.fail(ErrUnknownDestination, line, keys.Sanitize(key), "no replacement declared before this line")
	}
	rep, ok := b.reps[d]
	if !ok {
		return b.fail(ErrUnknownDestination, line, d, "replacement must be declared first")
	}
	k := keys.Sanitize(key)
	if k == "" {
		return b.fail(ErrMalformed, line, d, "empty substitution key")
	}
	if _, ok := rep.Subs[k]; ok {
		return b.fail(ErrDuplicateNestedKey, line, k, "in replacement "+d)
	}
	rep.Subs[k] = value
	return nil
}

// Replace declares a new replacement entry for dest and moves the cursor to
// it.
func (b *Builder) Replace(dest string, action Action, line int) error {
	d := keys.Sanitize(dest)
	if d == "" {
		return b.fail(ErrMalformed, line, "", "replacement missing destination id")
	}
	if action == nil {
		return b.fail(ErrMalformed, line, d, "replacement missing action")
	}
	if _, ok := b.reps[d]; ok {
		return b.fail(ErrDuplicateDestination, line, d, "")
	}
	if r, ok := action.(Replace); ok {
		r.SourceID = keys.Sanitize(r.SourceID)
		if r.SourceID == "" || r.SourcePath == "" {
			return b.fail(ErrMalformed, line, d, "replacement needs a source id and path")
		}
		action = r
	}
	b.reps[d] = &Replacement{DestID: d, Action: action, Subs: SubstitutionMap{}, Line: line}
	b.cursor = d
	return nil
}

// SetTemplate records the template named by the definition.
func (b *Builder) SetTemplate(path string, line int) {
	b.template = path
	b.templateLine = line
}

// SetOutput records an explicit output base path.
func (b *Builder) SetOutput(path string) {
	b.output = path
}

// SetTinted records whether the overlay layer is kept.
func (b *Builder) SetTinted(tinted bool) {
	b.tinted = tinted
}

// Build returns the finished spec. The builder must not be used afterwards.
func (b *Builder) Build() *Spec {
	s := &Spec{
		Variant:      b.variant,
		Subs:         b.subs,
		Replacements: b.reps,
		Template:     b.template,
		TemplateLine: b.templateLine,
		Output:       b.output,
		Tinted:       b.tinted,
	}
	*b = Builder{}
	return s
}
