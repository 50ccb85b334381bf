package doctree

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">
  <g id="Layer 1">
    <text id="Call_Sign" x="10" y="20">#call_sign#</text>
    <g id="inner"><rect id="call_sign" width="5" height="5"/></g>
  </g>
</svg>
`

func TestParse_FindByID(t *testing.T) {
	doc, err := Parse([]byte(sample), "sample.svg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Root().Tag != "svg" {
		t.Errorf("expected svg root, got %q", doc.Root().Tag)
	}

	el := doc.FindByID(" CALL SIGN ")
	if el == nil {
		t.Fatal("expected to find call_sign")
	}
	if el.Tag != "text" {
		t.Errorf("expected first match in pre-order to be text, got %q", el.Tag)
	}
	if doc.FindByID("layer_1") == nil {
		t.Error("expected sanitized match for id with a space")
	}
	if doc.FindByID("missing") != nil {
		t.Error("expected nil for missing id")
	}
	if doc.FindByID("") != nil {
		t.Error("expected nil for empty id")
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("not xml at all"), "bad.svg")
	if !IsIOError(err) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.svg") {
		t.Errorf("expected path in error, got %q", err.Error())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.svg"))
	if !IsIOError(err) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func TestImage_Wrapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Image(path, ".jpg", "120", "80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := doc.FindByID(".jpg")
	if img == nil || img.Tag != "image" {
		t.Fatalf("expected image element, got %v", img)
	}
	if got := img.SelectAttrValue("width", ""); got != "120" {
		t.Errorf("expected width 120, got %q", got)
	}
	if href := img.SelectAttrValue("href", ""); !strings.HasPrefix(href, "data:image/jpeg;base64,/9j/") {
		t.Errorf("unexpected href %q", href)
	}
}

func TestWrite_Minify(t *testing.T) {
	doc, err := Parse([]byte(sample), "sample.svg")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.svg")
	small := filepath.Join(dir, "small.svg")
	if err := doc.Write(plain, WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := doc.Write(small, WriteOptions{Minify: true}); err != nil {
		t.Fatalf("write minified: %v", err)
	}
	a, _ := os.ReadFile(plain)
	b, _ := os.ReadFile(small)
	if len(b) >= len(a) {
		t.Errorf("expected minified output to be smaller: %d >= %d", len(b), len(a))
	}
	if !bytes.Contains(b, []byte("#call_sign#")) {
		t.Error("expected text content to survive minification")
	}
	if _, err := Parse(b, small); err != nil {
		t.Errorf("expected minified output to parse: %v", err)
	}
}
