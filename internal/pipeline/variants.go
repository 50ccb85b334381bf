package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/parser"
)

// VariantPlaceholder in an output base path is replaced by the variant name.
const VariantPlaceholder = "VARIANT"

// Variant is one output unit: a column of a row group, or a whole
// declaration file. Exactly one of Spec and Err is set.
type Variant struct {
	Group  int // 1-based group ordinal
	Column int
	Name   string
	Spec   *edits.Spec
	Err    error
}

// ExpandGroup builds one spec per variant column of g, stopping at the first
// column with an empty header. A variant whose rows do not parse carries the
// error instead of a spec; the other variants are unaffected.
func ExpandGroup(g parser.Group, index int, source string) []Variant {
	names := g.Variants()
	variants := make([]Variant, 0, len(names))
	for i, name := range names {
		col := parser.VariantColumn + i
		v := Variant{Group: index, Column: col, Name: name}
		spec, err := edits.FromGroup(g, col, source)
		if err != nil {
			v.Err = fmt.Errorf("group %d: %w", index, err)
		} else {
			v.Spec = spec
		}
		variants = append(variants, v)
	}
	return variants
}

// OutputBase returns the output path, without extension, for a variant. An
// explicit kbb_output wins; otherwise it is the template's base name plus
// "_VARIANT". The placeholder becomes the variant name with spaces replaced
// by underscores, and the result is placed under dir.
func OutputBase(spec *edits.Spec, template, dir string) string {
	base := spec.Output
	if base == "" {
		name := filepath.Base(template)
		base = strings.TrimSuffix(name, filepath.Ext(name)) + "_" + VariantPlaceholder
	}
	base = strings.ReplaceAll(base, VariantPlaceholder, strings.ReplaceAll(spec.Variant, " ", "_"))
	return filepath.Clean(filepath.Join(dir, base))
}

// ErrOutputEscapes is returned for an output path outside the job's output
// directory when outputs are confined.
var ErrOutputEscapes = errors.New("output path escapes output directory")

// within reports whether path lies strictly inside dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), path)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// markDuplicateOutputs fails every variant whose output path was already
// claimed by an earlier variant of the job, so concurrent builds never
// write the same file.
func markDuplicateOutputs(job *Job, variants []Variant) {
	claimed := make(map[string]*Variant)
	for i := range variants {
		v := &variants[i]
		if v.Err != nil || v.Spec == nil {
			continue
		}
		name := job.Template
		if name == "" {
			name = v.Spec.Template
		}
		if name == "" {
			continue
		}
		base := OutputBase(v.Spec, name, job.Options.OutputDir)
		if first, ok := claimed[base]; ok {
			v.Err = fmt.Errorf("output %s already written by group %d variant %q", filepath.Base(base), first.Group, first.Name)
			continue
		}
		claimed[base] = v
	}
}
