package graph

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestBuild_Dedup_KeepsFirstOccurrence(t *testing.T) {
	b := &Build{Artifact: "a.o", Rule: "cc"}

	err := b.Merge(&Build{Artifact: "a.o", Rule: "cc", Deps: []string{"x", "y", "x", "z", "y"}})
	if err != nil {
		t.Fatal(err)
	}

	if !b.Dedup() {
		t.Error("first Dedup reported no duplicates")
	}

	want := []string{"x", "y", "z"}
	if !slices.Equal(b.Deps, want) {
		t.Errorf("Deps = %v, want %v", b.Deps, want)
	}

	if b.Dedup() {
		t.Error("second Dedup reported duplicates")
	}

	if !slices.Equal(b.Deps, want) {
		t.Errorf("Deps after second Dedup = %v, want %v", b.Deps, want)
	}
}

func TestBuild_Merge_EmptyReceiverTakesOther(t *testing.T) {
	var b Build

	o := &Build{
		Artifact: "out",
		Rule:     "link",
		Deps:     []string{"a.o"},
		Vars:     map[string]string{"flags": "-s"},
		Implicit: NewSet("ld.script"),
	}

	if err := b.Merge(o); err != nil {
		t.Fatal(err)
	}

	o.Deps[0] = "changed"
	o.Implicit.Add("other")

	if b.Deps[0] != "a.o" || b.Implicit.Has("other") {
		t.Error("merged build aliases the source")
	}
}

func TestBuild_Merge_OrderIndependent(t *testing.T) {
	fragments := []*Build{
		{Artifact: "t", Rule: "r", Deps: []string{"a", "b"}, Vars: map[string]string{"v": "1"}},
		{Artifact: "t", Rule: "r", Deps: []string{"c", "a"}, Vars: map[string]string{"v": "1"}, Implicit: NewSet("i1")},
		{Artifact: "t", Rule: "r", Deps: []string{"d"}, Vars: map[string]string{"v": "1"}, OrderOnly: NewSet("o1")},
	}

	merge := func(order ...int) *Build {
		g := New()
		for _, i := range order {
			if err := g.Merge(fragments[i]); err != nil {
				t.Fatal(err)
			}
		}

		g.Finalize()

		b, _ := g.Get("t")

		return b
	}

	a := merge(0, 1, 2)
	b := merge(2, 1, 0)

	if !slices.Equal(slices.Sorted(slices.Values(a.Deps)), slices.Sorted(slices.Values(b.Deps))) {
		t.Errorf("deps differ: %v vs %v", a.Deps, b.Deps)
	}

	if a.Vars["v"] != b.Vars["v"] {
		t.Errorf("vars differ: %v vs %v", a.Vars, b.Vars)
	}

	if !slices.Equal(a.Implicit.Sorted(), []string{"i1"}) ||
		!slices.Equal(b.OrderOnly.Sorted(), []string{"o1"}) {
		t.Errorf("dependency sets not united: %v %v", a.Implicit, b.OrderOnly)
	}
}

func TestBuild_Merge_Conflicts(t *testing.T) {
	base := func() *Build {
		return &Build{Artifact: "t", Rule: "r", Vars: map[string]string{"v": "1"}, Pool: "p"}
	}

	tests := []struct {
		name  string
		other *Build
		err   error
	}{
		{"rule", &Build{Artifact: "t", Rule: "q", Vars: map[string]string{"v": "1"}}, ErrConflictRule},
		{"var value", &Build{Artifact: "t", Rule: "r", Vars: map[string]string{"v": "2"}}, ErrConflictVar},
		{"var missing", &Build{Artifact: "t", Rule: "r"}, ErrConflictVar},
		{"pool", &Build{Artifact: "t", Rule: "r", Vars: map[string]string{"v": "1"}, Pool: "q"}, ErrConflictPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][2]*Build{{base(), tt.other}, {tt.other, base()}} {
				g := New()
				if err := g.Merge(order[0]); err != nil {
					t.Fatal(err)
				}

				if err := g.Merge(order[1]); !errors.Is(err, tt.err) {
					t.Errorf("Merge error = %v, want %v", err, tt.err)
				}
			}
		})
	}
}

func TestRule_Merge(t *testing.T) {
	r := Rule{Vars: map[string]string{"a": "1", "b": "1"}, Implicit: NewSet("x")}

	err := r.Merge(Rule{Name: "cc", Vars: map[string]string{"b": "2"}, Implicit: NewSet("y")})
	if err != nil {
		t.Fatal(err)
	}

	if r.Name != "cc" || r.Vars["a"] != "1" || r.Vars["b"] != "2" {
		t.Errorf("Merge() = %+v", r)
	}

	if !slices.Equal(r.Implicit.Sorted(), []string{"x", "y"}) {
		t.Errorf("Implicit = %v, want [x y]", r.Implicit.Sorted())
	}

	if err := r.Merge(Rule{Name: "ld"}); !errors.Is(err, ErrRuleName) {
		t.Errorf("Merge different names error = %v, want %v", err, ErrRuleName)
	}

	if err := r.Merge(Rule{}); err != nil || r.Name != "cc" {
		t.Errorf("Merge unnamed = %v, name %q", err, r.Name)
	}
}

func TestBuild_Map(t *testing.T) {
	b := &Build{
		Artifact: "foo_$f.o",
		Rule:     "cc",
		Deps:     []string{"$f.c"},
		Implicit: NewSet("$f.h"),
		Vars:     map[string]string{"name": "$f"},
	}

	c, err := b.Map(func(s string) (string, error) {
		return strings.ReplaceAll(s, "$f", "bar"), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if c.Artifact != "foo_bar.o" || c.Deps[0] != "bar.c" ||
		!c.Implicit.Has("bar.h") || c.Vars["name"] != "bar" {
		t.Errorf("Map() = %+v", c)
	}

	if b.Artifact != "foo_$f.o" {
		t.Error("Map modified its receiver")
	}
}
