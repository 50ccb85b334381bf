// Package templates finds template and replacement source files on an
// ordered search path.
package templates

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultDirs are searched before any configured directories.
var DefaultDirs = []string{".", "templates"}

// Resolver looks names up in an ordered list of directories. It is safe for
// concurrent use.
type Resolver struct {
	dirs     []string
	log      *slog.Logger
	confined bool
}

// NewResolver builds a resolver over DefaultDirs followed by extra. Empty
// and repeated directories are dropped.
func NewResolver(extra []string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	r := &Resolver{log: log}
	seen := make(map[string]bool)
	for _, dir := range append(append([]string{}, DefaultDirs...), extra...) {
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		r.dirs = append(r.dirs, dir)
	}
	return r
}

// NewConfinedResolver builds a resolver for untrusted names, as uploaded
// to the build service. It searches only dirs (default "templates"), never
// the working directory, and refuses absolute names and names with ".."
// segments.
func NewConfinedResolver(dirs []string, log *slog.Logger) *Resolver {
	if len(dirs) == 0 {
		dirs = []string{"templates"}
	}
	r := NewResolver(nil, log)
	r.dirs = nil
	r.confined = true
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if dir = filepath.Clean(dir); !slices.Contains(r.dirs, dir) {
			r.dirs = append(r.dirs, dir)
		}
	}
	return r
}

// Dirs returns the search directories in lookup order.
func (r *Resolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Find returns the path of the first regular file called name in the search
// directories. Absolute names are checked as-is unless the resolver is
// confined, in which case they are refused along with ".." segments.
func (r *Resolver) Find(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if r.confined && escapes(name) {
		r.log.Warn("refusing template name outside search path", "name", name)
		return "", false
	}
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name)
		if isFile(path) {
			r.log.Debug("template resolved", "name", name, "path", path)
			return path, true
		}
	}
	r.log.Debug("template not found", "name", name, "dirs", r.dirs)
	return "", false
}

// escapes reports whether name is absolute or climbs out of the directory
// it is joined to.
func escapes(name string) bool {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return true
	}
	return slices.Contains(strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }), "..")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
