package glob

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// tree creates the named files (and their parent directories) below a
// temporary directory.
func tree(t *testing.T, files ...string) string {
	t.Helper()

	root := t.TempDir()

	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return root
}

func collect(t *testing.T, root string, dirs []string, file string) []string {
	t.Helper()

	var got []string

	err := Search(root, dirs, file, func(c string) bool {
		got = append(got, c)

		return false
	})
	if err != nil {
		t.Fatal(err)
	}

	return got
}

func TestSearch_FileWildcard(t *testing.T) {
	root := tree(t,
		"src/b.c", "src/a.c", "src/a.h", "src/c.c/keep", "other/d.c",
	)

	got := collect(t, root, []string{"src"}, "$$.c")
	if want := []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestSearch_DirWildcardReportsOnce(t *testing.T) {
	root := tree(t,
		"mod/alpha/main.go", "mod/alpha/util.go",
		"mod/beta/main.go",
		"mod/gamma/README",
		"mod/file.go",
	)

	got := collect(t, root, []string{"mod", "$$"}, "main.go")
	if want := []string{"alpha", "beta"}; !slices.Equal(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestSearch_LastWildcardWins(t *testing.T) {
	root := tree(t,
		"x1/lib/a.o", "x1/lib/b.o", "x2/lib/a.o", "x2/bin/c.o",
	)

	got := collect(t, root, []string{"$$", "lib"}, "$$.o")
	if want := []string{"a", "b", "a"}; !slices.Equal(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestSearch_StopEarly(t *testing.T) {
	root := tree(t, "a.txt", "b.txt", "c.txt")

	var got []string

	err := Search(root, nil, "$$.txt", func(c string) bool {
		got = append(got, c)

		return len(got) == 2
	})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestSearch_MissingDirectory(t *testing.T) {
	root := tree(t, "a.txt")

	if got := collect(t, root, []string{"nope", "$$"}, "x"); len(got) != 0 {
		t.Errorf("captures = %v, want none", got)
	}
}

func TestSearch_InvalidSegment(t *testing.T) {
	err := Search(t.TempDir(), []string{"$$x$$"}, "f", func(string) bool { return false })
	if err == nil {
		t.Error("expected error for segment with two markers")
	}
}

func TestSearchPattern_RelativeAndAbsolute(t *testing.T) {
	root := tree(t, "src/one.c", "src/two.c")

	for name, pattern := range map[string]string{
		"relative": "./src/$$.c",
		"absolute": filepath.Join(root, "src", "$$.c"),
	} {
		t.Run(name, func(t *testing.T) {
			var got []string

			err := SearchPattern(root, pattern, func(c string) bool {
				got = append(got, c)

				return false
			})
			if err != nil {
				t.Fatal(err)
			}

			if want := []string{"one", "two"}; !slices.Equal(got, want) {
				t.Errorf("captures = %v, want %v", got, want)
			}
		})
	}
}
