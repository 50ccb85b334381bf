package engine

import (
	"log/slog"

	"github.com/beevik/etree"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/doctree"
)

// Finalize commits provisional coordinates to x and y, then moves the
// overlay element, if present, to the end of its parent so it renders on
// top. Running it twice leaves the tree unchanged.
func Finalize(root *etree.Element, overlayID string, log *slog.Logger) {
	doctree.Walk(root, func(el *etree.Element) bool {
		commit(el, ProvisionalX, "x")
		commit(el, ProvisionalY, "y")
		return true
	})

	overlay := doctree.FindByID(root, overlayID)
	if overlay == nil || overlay == root {
		return
	}
	parent := overlay.Parent()
	if parent == nil {
		return
	}
	log.Debug("bringing overlay to front", "id", overlayID)
	parent.RemoveChild(overlay)
	parent.AddChild(overlay)
}

func commit(el *etree.Element, from, to string) {
	if a := el.SelectAttr(from); a != nil {
		el.CreateAttr(to, a.Value)
		el.RemoveAttr(from)
	}
}
