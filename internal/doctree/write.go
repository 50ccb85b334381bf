package doctree

import (
	"os"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

const svgMediaType = "image/svg+xml"

// WriteOptions controls how a document is written.
type WriteOptions struct {
	Minify bool // Strip whitespace and shorten attributes with tdewolff/minify
}

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)
	return m
}

// Write serializes the document to path.
func (d *Document) Write(path string, opts WriteOptions) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if opts.Minify {
		data, err = minifier.Bytes(svgMediaType, data)
		if err != nil {
			return &IOError{Op: "minify", Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
