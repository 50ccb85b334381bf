// Package edits holds the edit specification that drives one kneeboard build:
// a substitution map for template tags and a replacement map for element
// splicing, plus the per-variant control values.
package edits

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
)

// SubstitutionMap maps sanitized tag keys to their values. Values may span
// several lines.
type SubstitutionMap map[string]string

// Lookup finds the value for key after sanitizing it.
func (m SubstitutionMap) Lookup(key string) (string, bool) {
	v, ok := m[keys.Sanitize(key)]
	return v, ok
}

// Action is what happens to a destination element: Remove or Replace.
type Action interface {
	isAction()
	String() string
}

// Remove drops the destination element from its parent.
type Remove struct{}

func (Remove) isAction() {}
func (Remove) String() string { return "remove" }

// Replace swaps the destination element for the element with SourceID found
// in the document at SourcePath. SourcePath is resolved against the template
// search path when the replacement is applied.
type Replace struct {
	SourceID   string
	SourcePath string
}

func (Replace) isAction() {}
func (r Replace) String() string { return r.SourceID + ":" + r.SourcePath }

// Replacement is one entry of the replacement map. Subs are applied to the
// source element before it is spliced in.
type Replacement struct {
	DestID string
	Action Action
	Subs   SubstitutionMap
	Line   int
}

// ReplacementMap maps sanitized destination ids to their replacement.
type ReplacementMap map[string]*Replacement

// Lookup finds the replacement for id after sanitizing it.
func (m ReplacementMap) Lookup(id string) (*Replacement, bool) {
	if id == "" {
		return nil, false
	}
	r, ok := m[keys.Sanitize(id)]
	return r, ok
}

// With returns a copy of m that also removes id, unless m already declares
// an entry for it. The receiver is not modified.
func (m ReplacementMap) With(id string, action Action) ReplacementMap {
	out := maps.Clone(m)
	if out == nil {
		out = ReplacementMap{}
	}
	key := keys.Sanitize(id)
	if _, ok := out[key]; !ok {
		out[key] = &Replacement{DestID: key, Action: action}
	}
	return out
}

// Spec is a complete edit specification for one variant. It is built by a
// Builder and not modified afterwards.
type Spec struct {
	Variant      string
	Subs         SubstitutionMap
	Replacements ReplacementMap

	// Template is the template path as written in the definition; empty when
	// the caller supplies the template.
	Template     string
	TemplateLine int

	// Output is the explicit output base path, which may contain the VARIANT
	// placeholder. Empty means derive it from the template name.
	Output string

	// Tinted keeps the overlay layer; otherwise it is removed.
	Tinted bool
}

// LogValue renders the spec compactly for dry runs and debug logs.
func (s *Spec) LogValue() slog.Value {
	reps := make([]string, 0, len(s.Replacements))
	for _, id := range slices.Sorted(maps.Keys(s.Replacements)) {
		reps = append(reps, id+"="+s.Replacements[id].Action.String())
	}
	return slog.GroupValue(
		slog.String("variant", s.Variant),
		slog.String("template", s.Template),
		slog.String("output", s.Output),
		slog.Bool("tinted", s.Tinted),
		slog.Any("subs", slices.Sorted(maps.Keys(s.Subs))),
		slog.Any("replacements", reps),
	)
}
