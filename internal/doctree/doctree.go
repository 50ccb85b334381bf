// Package doctree loads, searches and writes SVG documents as mutable
// element trees.
package doctree

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
)

// Document is a parsed SVG tree. The engine mutates it in place; a Document
// is never shared between builds.
type Document struct {
	Path string // File the document was read from ("" when built in memory)
	doc  *etree.Document
}

// Load reads and parses the SVG at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse parses SVG bytes. name labels errors and becomes Path.
func Parse(data []byte, name string) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &IOError{Op: "parse", Path: name, Err: err}
	}
	if doc.Root() == nil {
		return nil, &IOError{Op: "parse", Path: name, Err: fmt.Errorf("no root element")}
	}
	return &Document{Path: name, doc: doc}, nil
}

// Image wraps the raster image at path in a single-element SVG document. The
// embedded <image> carries id and the given width and height, and its data
// is inlined as a base64 data URI.
func Image(path, id, width, height string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	root.CreateAttr("width", width)
	root.CreateAttr("height", height)

	img := root.CreateElement("image")
	img.CreateAttr("id", id)
	img.CreateAttr("href", "data:"+imageType(path)+";base64,"+base64.StdEncoding.EncodeToString(data))
	img.CreateAttr("width", width)
	img.CreateAttr("height", height)

	return &Document{Path: path, doc: doc}, nil
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// Root returns the document element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// FindByID returns the first element, in depth-first pre-order, whose id
// matches id after sanitizing both. It returns nil when none does.
func (d *Document) FindByID(id string) *etree.Element {
	return FindByID(d.Root(), id)
}

// FindByID searches the tree rooted at el. See Document.FindByID.
func FindByID(el *etree.Element, id string) *etree.Element {
	if el == nil {
		return nil
	}
	want := keys.Sanitize(id)
	if want == "" {
		return nil
	}
	var found *etree.Element
	Walk(el, func(e *etree.Element) bool {
		if found != nil {
			return false
		}
		if keys.Sanitize(ID(e)) == want {
			found = e
			return false
		}
		return true
	})
	return found
}

// Walk visits el and its descendants depth-first, pre-order. Returning false
// from fn skips that element's children.
func Walk(el *etree.Element, fn func(*etree.Element) bool) {
	if !fn(el) {
		return
	}
	for _, child := range el.ChildElements() {
		Walk(child, fn)
	}
}

// ID returns the element's id attribute, or "".
func ID(el *etree.Element) string {
	return el.SelectAttrValue("id", "")
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.doc.WriteTo(&buf); err != nil {
		return nil, &IOError{Op: "serialize", Path: d.Path, Err: err}
	}
	return buf.Bytes(), nil
}
