package engine

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/doctree"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func parse(t *testing.T, svg string) *doctree.Document {
	t.Helper()
	doc, err := doctree.Parse([]byte(svg), "test.svg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	return New(Options{Resolver: templates.NewResolver([]string{dir}, quiet), Log: quiet})
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func build(t *testing.T, b *edits.Builder) *edits.Spec {
	t.Helper()
	return b.Build()
}

func TestApply_SubstitutesCallSign(t *testing.T) {
	doc := parse(t, `<svg><text id="t">#call_sign#</text></svg>`)
	b := edits.NewBuilder("test", "Viper")
	if err := b.Substitute("call_sign", "Viper 1", 1); err != nil {
		t.Fatal(err)
	}
	if err := newEngine(t, t.TempDir()).Apply(doc, build(t, b)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.FindByID("t").Text(); got != "Viper 1" {
		t.Errorf("expected %q, got %q", "Viper 1", got)
	}
}

func TestApply_MissingKeyClearsTag(t *testing.T) {
	doc := parse(t, `<svg><text id="t">#call_sign#</text></svg>`)
	spec := edits.NewBuilder("test", "Viper").Build()
	if err := newEngine(t, t.TempDir()).Apply(doc, spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.FindByID("t").Text(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestApply_ReplaceSplicesAtDestination(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.svg", `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
  <g id="src"><text id="label">#freq#</text><text id="dst_token">#call_sign#</text></g>
</svg>`)
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg"><rect id="before"/><g id="dst" x="12.5" y="40"/><rect id="after"/></svg>`)

	b := edits.NewBuilder("test", "Viper")
	if err := b.Substitute("call_sign", "Viper 1", 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Replace("dst", edits.Replace{SourceID: "SRC", SourcePath: "other.svg"}, 2); err != nil {
		t.Fatal(err)
	}
	if err := b.SubstituteFor("dst", "freq", "251.0", 3); err != nil {
		t.Fatal(err)
	}
	if err := newEngine(t, dir).Apply(doc, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.FindByID("dst") != nil {
		t.Error("expected destination to be gone")
	}
	src := doc.FindByID("src")
	if src == nil {
		t.Fatal("expected spliced source element")
	}
	if got := src.SelectAttrValue("transform", ""); got != "translate(12.5, 40)" {
		t.Errorf("expected translate(12.5, 40), got %q", got)
	}
	if got := doc.FindByID("label").Text(); got != "251.0" {
		t.Errorf("expected nested substitution, got %q", got)
	}
	// Nested maps only: top-level keys never reach spliced content.
	if got := doc.FindByID("dst_token").Text(); got != "" {
		t.Errorf("expected unresolved nested tag cleared, got %q", got)
	}

	var order []string
	for _, el := range doc.Root().ChildElements() {
		order = append(order, doctree.ID(el))
	}
	if strings.Join(order, ",") != "before,src,after" {
		t.Errorf("expected splice in place, got %v", order)
	}
	if doc.Root().SelectAttr("xmlns:xlink") == nil {
		t.Error("expected xlink namespace to be adopted")
	}
}

func TestApply_ReplaceDefaultsToOrigin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.svg", `<svg><rect id="src"/></svg>`)
	doc := parse(t, `<svg><g><rect id="dst"/></g></svg>`)
	b := edits.NewBuilder("test", "")
	if err := b.Replace("dst", edits.Replace{SourceID: "src", SourcePath: "other.svg"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := newEngine(t, dir).Apply(doc, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.FindByID("src").SelectAttrValue("transform", ""); got != "translate(0, 0)" {
		t.Errorf("expected translate(0, 0), got %q", got)
	}
}

func TestApply_RemoveAndOverlay(t *testing.T) {
	svg := `<svg><rect id="Night-Tint"/><g id="drop"><text>x</text></g><rect id="top"/></svg>`

	b := edits.NewBuilder("test", "")
	if err := b.Replace("DROP", edits.Remove{}, 1); err != nil {
		t.Fatal(err)
	}
	day := parse(t, svg)
	if err := newEngine(t, t.TempDir()).Apply(day, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.FindByID("drop") != nil {
		t.Error("expected drop to be removed")
	}
	if day.FindByID("night-tint") != nil {
		t.Error("expected overlay removed for untinted variant")
	}

	b = edits.NewBuilder("test", "")
	b.SetTinted(true)
	night := parse(t, svg)
	if err := newEngine(t, t.TempDir()).Apply(night, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	children := night.Root().ChildElements()
	if last := doctree.ID(children[len(children)-1]); last != "Night-Tint" {
		t.Errorf("expected overlay last, got %q", last)
	}
}

func TestApply_ResolutionErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.svg", `<svg><rect id="src"/></svg>`)
	writeFile(t, dir, "photo.png", "\x89PNG")

	tests := []struct {
		name   string
		action edits.Replace
		want   error
	}{
		{"missing template", edits.Replace{SourceID: "src", SourcePath: "gone.svg"}, ErrTemplateNotFound},
		{"missing element", edits.Replace{SourceID: "nope", SourcePath: "other.svg"}, ErrSourceNotFound},
		{"bad image id", edits.Replace{SourceID: ".png_120", SourcePath: "photo.png"}, ErrBadImageID},
		{"bad image size", edits.Replace{SourceID: ".png_wide_80", SourcePath: "photo.png"}, ErrBadImageID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, `<svg><g id="dst"/></svg>`)
			b := edits.NewBuilder("test", "")
			if err := b.Replace("dst", tt.action, 1); err != nil {
				t.Fatal(err)
			}
			err := newEngine(t, dir).Apply(doc, b.Build())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var re *ResolutionError
			if !errors.As(err, &re) || re.DestID != "dst" {
				t.Errorf("expected resolution error naming dst, got %v", err)
			}
		})
	}
}

func TestApply_ImageReplacement(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "photo.png", "\x89PNG")
	doc := parse(t, `<svg><g id="photo" x="5" y="6"/></svg>`)
	b := edits.NewBuilder("test", "")
	if err := b.Replace("photo", edits.Replace{SourceID: ".png_120_80", SourcePath: "photo.png"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := newEngine(t, dir).Apply(doc, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := doc.FindByID(".png")
	if img == nil || img.Tag != "image" {
		t.Fatalf("expected spliced image, got %v", img)
	}
	if img.SelectAttrValue("width", "") != "120" || img.SelectAttrValue("height", "") != "80" {
		t.Errorf("unexpected size %s x %s", img.SelectAttrValue("width", ""), img.SelectAttrValue("height", ""))
	}
	if got := img.SelectAttrValue("transform", ""); got != "translate(5, 6)" {
		t.Errorf("expected translate(5, 6), got %q", got)
	}
}

func TestApply_SplicedContentNotReplacedAgain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.svg", `<svg><g id="src"><rect id="inner"/></g></svg>`)
	doc := parse(t, `<svg><g id="dst"/></svg>`)
	b := edits.NewBuilder("test", "")
	if err := b.Replace("dst", edits.Replace{SourceID: "src", SourcePath: "other.svg"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Replace("inner", edits.Remove{}, 2); err != nil {
		t.Fatal(err)
	}
	if err := newEngine(t, dir).Apply(doc, b.Build()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.FindByID("inner") == nil {
		t.Error("expected spliced content to be left alone")
	}
}

func countElements(el *etree.Element) (elements, attrs int) {
	doctree.Walk(el, func(e *etree.Element) bool {
		elements++
		attrs += len(e.Attr)
		return true
	})
	return elements, attrs
}
