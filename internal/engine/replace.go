package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/doctree"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

// imagePrefixes mark source ids that name a raster image rather than an
// element: <label>_<width>_<height>, e.g. ".png_120_80".
var imagePrefixes = []string{".png", ".jpg", ".jpeg"}

type replacer struct {
	resolver *templates.Resolver
	log      *slog.Logger
	reps     edits.ReplacementMap
	root     *etree.Element
}

// splice is a planned edit to one child: remove old, and insert repl in its
// place when repl is non-nil.
type splice struct {
	old  *etree.Element
	repl *etree.Element
}

// visit plans edits for el's children while walking them, then applies the
// plan once the walk is done. Spliced elements are not visited.
func (r *replacer) visit(el *etree.Element) error {
	var plan []splice
	for _, child := range el.ChildElements() {
		rep, ok := r.reps.Lookup(doctree.ID(child))
		if !ok {
			if err := r.visit(child); err != nil {
				return err
			}
			continue
		}
		switch action := rep.Action.(type) {
		case edits.Remove:
			if len(rep.Subs) > 0 {
				r.log.Warn("ignoring substitutions for removed element", "id", rep.DestID)
			}
			r.log.Debug("element removed", "tag", child.Tag, "id", rep.DestID)
			plan = append(plan, splice{old: child})
		case edits.Replace:
			repl, err := r.load(child, rep, action)
			if err != nil {
				return err
			}
			r.log.Debug("element replaced", "tag", child.Tag, "id", rep.DestID, "source", action.String())
			plan = append(plan, splice{old: child, repl: repl})
		default:
			return fmt.Errorf("replace %s: unsupported action %T", rep.DestID, rep.Action)
		}
	}

	for _, s := range plan {
		if s.repl != nil {
			el.InsertChildAt(s.old.Index(), s.repl)
		}
		el.RemoveChild(s.old)
	}
	return nil
}

// load finds the source element for a replacement, substitutes the entry's
// nested values into it and positions it at dest's x and y.
func (r *replacer) load(dest *etree.Element, rep *edits.Replacement, action edits.Replace) (*etree.Element, error) {
	fail := func(kind error, path string) error {
		return &ResolutionError{Kind: kind, DestID: rep.DestID, SourceID: action.SourceID, Path: path}
	}

	path, ok := r.resolver.Find(action.SourcePath)
	if !ok {
		return nil, fail(ErrTemplateNotFound, action.SourcePath)
	}

	var (
		src *doctree.Document
		err error
	)
	id := action.SourceID
	if isImageID(id) {
		label, width, height, ok := parseImageID(id)
		if !ok {
			return nil, fail(ErrBadImageID, path)
		}
		src, err = doctree.Image(path, label, width, height)
		id = label
	} else {
		src, err = doctree.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("replace %s: %w", rep.DestID, err)
	}

	found := src.FindByID(id)
	if found == nil {
		return nil, fail(ErrSourceNotFound, path)
	}
	if parent := found.Parent(); parent != nil {
		parent.RemoveChild(found)
	}

	Substitute(found, rep.Subs, r.log.With("replacement", rep.DestID))

	x := dest.SelectAttrValue("x", "0")
	y := dest.SelectAttrValue("y", "0")
	found.CreateAttr("transform", fmt.Sprintf("translate(%s, %s)", x, y))

	adoptNamespaces(r.root, src.Root())
	return found, nil
}

func isImageID(id string) bool {
	for _, prefix := range imagePrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// parseImageID splits <label>_<width>_<height>. Width and height must be
// positive numbers.
func parseImageID(id string) (label, width, height string, ok bool) {
	fields := strings.Split(id, keys.Separator)
	if len(fields) != 3 {
		return "", "", "", false
	}
	for _, dim := range fields[1:] {
		v, err := strconv.ParseFloat(dim, 64)
		if err != nil || v <= 0 {
			return "", "", "", false
		}
	}
	return fields[0], fields[1], fields[2], true
}

// adoptNamespaces declares on dst any namespace prefix declared on src that
// dst lacks, so spliced elements keep prefixes such as xlink or inkscape.
func adoptNamespaces(dst, src *etree.Element) {
	if dst == nil || src == nil {
		return
	}
	for _, a := range src.Attr {
		if a.Space != "xmlns" && !(a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if dst.SelectAttr(a.FullKey()) == nil {
			dst.CreateAttr(a.FullKey(), a.Value)
		}
	}
}
