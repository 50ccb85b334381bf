package templates

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolver_SearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "card.svg"))
	writeFile(t, filepath.Join(second, "card.svg"))
	writeFile(t, filepath.Join(second, "sub", "only.svg"))

	r := NewResolver([]string{first, second, first, ""}, nil)
	if got := len(r.Dirs()); got != 4 {
		t.Errorf("expected 4 unique dirs, got %d: %v", got, r.Dirs())
	}

	path, ok := r.Find("card.svg")
	if !ok || path != filepath.Join(first, "card.svg") {
		t.Errorf("expected first dir to win, got %q %v", path, ok)
	}
	path, ok = r.Find(filepath.Join("sub", "only.svg"))
	if !ok || path != filepath.Join(second, "sub", "only.svg") {
		t.Errorf("expected nested name to resolve, got %q %v", path, ok)
	}
	if _, ok := r.Find("missing.svg"); ok {
		t.Error("expected missing.svg not to resolve")
	}
	if _, ok := r.Find("sub"); ok {
		t.Error("expected directories not to resolve")
	}
}

func TestResolver_Absolute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abs.svg")
	writeFile(t, path)
	r := NewResolver(nil, nil)
	if got, ok := r.Find(path); !ok || got != path {
		t.Errorf("expected absolute path to resolve, got %q %v", got, ok)
	}
	if _, ok := r.Find(path + ".gone"); ok {
		t.Error("expected missing absolute path not to resolve")
	}
}

func TestConfinedResolver(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "templates")
	writeFile(t, filepath.Join(dir, "card.svg"))
	writeFile(t, filepath.Join(dir, "sub", "nested.svg"))
	writeFile(t, filepath.Join(root, "secret.png"))
	t.Chdir(root)

	r := NewConfinedResolver([]string{dir}, nil)
	if got := r.Dirs(); len(got) != 1 || got[0] != dir {
		t.Errorf("expected only %q, got %v", dir, got)
	}
	if _, ok := r.Find("card.svg"); !ok {
		t.Error("expected card.svg to resolve")
	}
	if _, ok := r.Find("sub/nested.svg"); !ok {
		t.Error("expected nested name to resolve")
	}

	tests := []string{
		filepath.Join(root, "secret.png"),
		"../secret.png",
		"sub/../../secret.png",
		`..\secret.png`,
		"secret.png", // working directory is not searched
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if path, ok := r.Find(name); ok {
				t.Errorf("expected %q to be refused, got %q", name, path)
			}
		})
	}
}

func TestConfinedResolver_DefaultDir(t *testing.T) {
	r := NewConfinedResolver(nil, nil)
	if got := r.Dirs(); len(got) != 1 || got[0] != "templates" {
		t.Errorf("expected [templates], got %v", got)
	}
}
