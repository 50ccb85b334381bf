// Package engine applies an edit specification to an SVG template: tag
// substitution, element removal and splicing, then coordinate finalization
// and overlay ordering.
package engine

import (
	"log/slog"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/doctree"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

// DefaultOverlayID is the id of the night tint layer.
const DefaultOverlayID = "Night-Tint"

// Options configures an Engine.
type Options struct {
	Resolver  *templates.Resolver // Finds replacement source files
	Log       *slog.Logger
	OverlayID string // Layer brought to front, or removed when the spec is not tinted
}

// Engine applies specs to documents. It holds no per-build state and may be
// shared by concurrent builds.
type Engine struct {
	resolver  *templates.Resolver
	log       *slog.Logger
	overlayID string
}

// New creates an Engine. A nil resolver searches only the default
// directories; an empty overlay id uses DefaultOverlayID.
func New(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = templates.NewResolver(nil, opts.Log)
	}
	if opts.OverlayID == "" {
		opts.OverlayID = DefaultOverlayID
	}
	return &Engine{
		resolver:  opts.Resolver,
		log:       opts.Log,
		overlayID: opts.OverlayID,
	}
}

// Apply runs substitution, replacement and finalization on doc. doc is
// modified in place; on error it is left partially edited and should be
// discarded.
func (e *Engine) Apply(doc *doctree.Document, spec *edits.Spec) error {
	log := e.log.With("variant", spec.Variant)
	root := doc.Root()

	reps := spec.Replacements
	if !spec.Tinted {
		log.Debug("untinted variant, removing overlay", "id", e.overlayID)
		reps = reps.With(e.overlayID, edits.Remove{})
	}

	Substitute(root, spec.Subs, log)

	r := &replacer{resolver: e.resolver, log: log, reps: reps, root: root}
	if err := r.visit(root); err != nil {
		return err
	}

	Finalize(root, e.overlayID, log)
	return nil
}
