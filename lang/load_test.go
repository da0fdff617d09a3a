package lang

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_CachesByContent(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")

	const src = "- prolog: ninja_required_version = 1.10\n"

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	first, err := Load(t.Context(), a)
	if err != nil {
		t.Fatal(err)
	}

	second, err := Load(t.Context(), b)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 1 || &first[0] != &second[0] {
		t.Error("identical content was decoded twice")
	}

	if p, ok := first[0].(Prolog); !ok || p.Text != "ninja_required_version = 1.10" {
		t.Errorf("first statement = %#v", first[0])
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.Context(), filepath.Join(t.TempDir(), "none.yaml"))
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("error = %v, want ErrReadInput", err)
	}
}

func TestLoad_CachesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	if err := os.WriteFile(path, []byte("- {clear: a, clear2: b}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := Load(t.Context(), path); !errors.Is(err, ErrDecode) {
			t.Errorf("error = %v, want ErrDecode", err)
		}
	}
}

func TestLoad_ReplacesEditedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watched.yaml")

	load := func(src string) Block {
		t.Helper()

		if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}

		b, err := Load(t.Context(), path)
		if err != nil {
			t.Fatal(err)
		}

		return b
	}

	load("- prolog: " + path + " first\n")
	entries := cache.len()

	for _, text := range []string{"second", "third", "fourth"} {
		b := load("- prolog: " + path + " " + text + "\n")

		if p, ok := b[0].(Prolog); !ok || p.Text != path+" "+text {
			t.Errorf("statement = %#v, want the edited content", b[0])
		}
	}

	if got := cache.len(); got != entries {
		t.Errorf("cache entries = %d after edits, want %d", got, entries)
	}
}
