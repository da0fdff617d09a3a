package eval

import (
	"bufio"
	"cmp"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/readahead"

	"github.com/ardnew/ajnin/glob"
	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
)

// Item is an element of a list: a name and positional arguments.
type Item struct {
	Name string   `json:"name"           yaml:"name"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func (it Item) String() string {
	if len(it.Args) == 0 {
		return it.Name
	}

	return it.Name + "[" + strings.Join(it.Args, ",") + "]"
}

// listStore holds every list of a run.
type listStore struct {
	lists map[lang.ListID][]Item
}

func makeListStore() listStore {
	return listStore{lists: make(map[lang.ListID][]Item)}
}

func (s listStore) exists(id lang.ListID) bool {
	_, ok := s.lists[id]

	return ok
}

// declare creates list id unless it exists.
func (s listStore) declare(id lang.ListID) {
	if !s.exists(id) {
		s.lists[id] = nil
	}
}

func (s listStore) clear(id lang.ListID) { delete(s.lists, id) }

func (s listStore) items(id lang.ListID) []Item { return s.lists[id] }

func (s listStore) append(id lang.ListID, items ...Item) {
	s.lists[id] = append(s.lists[id], items...)
}

func (s listStore) removeByName(id lang.ListID, name string) {
	s.lists[id] = slices.DeleteFunc(s.lists[id], func(it Item) bool {
		return it.Name == name
	})
}

// sort orders list id by name, keeping the relative order of equal names.
// With unique, adjacent items of equal name are then reduced to the first.
func (s listStore) sort(id lang.ListID, desc, unique bool) {
	items := s.lists[id]

	slices.SortStableFunc(items, func(a, b Item) int {
		if desc {
			return cmp.Compare(b.Name, a.Name)
		}

		return cmp.Compare(a.Name, b.Name)
	})

	if unique {
		items = slices.CompactFunc(items, func(a, b Item) bool {
			return a.Name == b.Name
		})
	}

	s.lists[id] = items
}

// dedup removes every item whose name occurred before it.
func (s listStore) dedup(id lang.ListID) {
	seen := make(graph.Set)

	s.lists[id] = slices.DeleteFunc(s.lists[id], func(it Item) bool {
		if seen.Has(it.Name) {
			return true
		}

		seen.Add(it.Name)

		return false
	})
}

// search appends one item per file matching pattern to list id. The item
// is named by the capture of the glob marker, and its only argument is the
// pattern with the marker replaced by the capture.
func (e *Evaluator) search(id lang.ListID, pattern string) error {
	p, hasGlob, err := e.expand(pattern)
	if err != nil {
		return err
	}

	if !hasGlob {
		return ErrNoGlob.With(slog.String("pattern", pattern))
	}

	var items []Item

	err = glob.SearchPattern(e.dir, p, func(capture string) bool {
		items = append(items, Item{
			Name: capture,
			Args: []string{strings.Replace(p, glob.Marker, capture, 1)},
		})

		return false
	})
	if err != nil {
		return err
	}

	e.lists.append(id, items...)

	e.trace("searched list",
		slog.String("list", id.String()),
		slog.String("pattern", p),
		slog.Int("found", len(items)),
	)

	return nil
}

// include appends the items of a list file to list id.
//
// Every line is expanded for environment references. A line ending in " \"
// continues an item: the first such line is the name, the following lines
// are arguments up to and including the first line that does not continue.
// A line that does not continue an item is an item without arguments.
func (e *Evaluator) include(id lang.ListID, path string) error {
	p, err := e.expandLiteral(path)
	if err != nil {
		return err
	}

	p = e.resolve(p)

	e.trace("reading list", slog.String("list", id.String()), slog.String("path", p))

	f, err := os.Open(p)
	if err != nil {
		return ErrReadList.Wrap(err).With(slog.String("path", p))
	}
	defer f.Close()

	e.meta.Add(p)

	ra := readahead.NewReader(f)
	defer ra.Close()

	var (
		items   []Item
		pending *Item
	)

	sc := bufio.NewScanner(ra)
	for sc.Scan() {
		line, err := e.expandEnv(sc.Text())
		if err != nil {
			return err
		}

		text, continued := strings.CutSuffix(line, ` \`)

		switch {
		case pending == nil && continued:
			pending = &Item{Name: text}

		case pending == nil && line == "":

		case pending == nil:
			items = append(items, Item{Name: line})

		case continued:
			pending.Args = append(pending.Args, text)

		default:
			pending.Args = append(pending.Args, line)
			items = append(items, *pending)
			pending = nil
		}
	}

	if err := sc.Err(); err != nil {
		return ErrReadList.Wrap(err).With(slog.String("path", p))
	}

	if pending != nil {
		items = append(items, *pending)
	}

	e.lists.append(id, items...)

	return nil
}
