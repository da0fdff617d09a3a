package glob

import (
	"os"
	"path/filepath"
	"strings"
)

// Visit receives the capture of each match. Returning true stops the search.
type Visit func(capture string) (stop bool)

type searcher struct {
	dirs []Pattern
	file Pattern
	last int // index of the last wildcard segment, len(dirs) for the file
	fn   Visit
}

// Search enumerates the files below root whose intermediate directories
// match dirs and whose name matches file.
//
// Only the last wildcard segment yields a capture. When that segment is a
// directory, its capture is reported once for the first file matched beneath
// it and the rest of that subtree is skipped. Segments without a marker are
// joined onto the path without listing the directory. Entries are visited
// in lexical order, and directories that cannot be read are skipped.
func Search(root string, dirs []string, file string, fn Visit) error {
	s := searcher{dirs: make([]Pattern, len(dirs)), last: -1, fn: fn}

	for i, d := range dirs {
		p, err := Compile(d)
		if err != nil {
			return err
		}

		s.dirs[i] = p

		if p.wild {
			s.last = i
		}
	}

	p, err := Compile(file)
	if err != nil {
		return err
	}

	s.file = p

	if p.wild {
		s.last = len(dirs)
	}

	s.walk(root, 0)

	return nil
}

// SearchPattern splits pattern into segments and calls [Search]. Absolute
// patterns are searched from the filesystem root, relative ones from base.
func SearchPattern(base, pattern string, fn Visit) error {
	root := base
	if filepath.IsAbs(pattern) {
		root = string(filepath.Separator)
	}

	dir, file := filepath.Split(pattern)

	var dirs []string

	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg != "" && seg != "." {
			dirs = append(dirs, seg)
		}
	}

	return Search(root, dirs, file, fn)
}

func (s *searcher) walk(dir string, i int) (hit, stop bool) {
	for i < len(s.dirs) && !s.dirs[i].wild {
		dir = filepath.Join(dir, s.dirs[i].prefix)
		i++
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, false
	}

	if i == len(s.dirs) {
		return s.files(dir, entries)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !isDir(path, e) {
			continue
		}

		r, c := s.dirs[i].Match(e.Name())
		if r == Reject {
			continue
		}

		if i != s.last {
			h, st := s.walk(path, i+1)
			hit = hit || h

			if st {
				return hit, true
			}

			continue
		}

		if h, _ := s.walk(path, i+1); h {
			hit = true

			if s.fn(c) {
				return true, true
			}
		}
	}

	return hit, false
}

func (s *searcher) files(dir string, entries []os.DirEntry) (hit, stop bool) {
	report := s.last == len(s.dirs) || s.last < 0

	for _, e := range entries {
		if isDir(filepath.Join(dir, e.Name()), e) {
			continue
		}

		r, c := s.file.Match(e.Name())
		if r == Reject {
			continue
		}

		if !report {
			// The capture belongs to a directory above.
			return true, false
		}

		hit = true

		if s.fn(c) {
			return true, true
		}
	}

	return hit, false
}

func isDir(path string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir()
	}

	fi, err := os.Stat(path)

	return err == nil && fi.IsDir()
}
