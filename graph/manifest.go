package graph

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/ajnin/pkg"
)

// Header line prefixes of a manifest.
const (
	headerDep    = "# ajnin deps: "
	headerDigest = "# ajnin digest: "
	headerEnd    = "# ajnin deps end"
)

// Manifest is an evaluated graph ready for emission.
type Manifest struct {
	Graph  *Graph
	Prolog []string
	Epilog []string
	Meta   Set // files the manifest depends on without a build of their own
}

type writeConfig struct {
	bare    bool
	split   int
	filters []Filter
}

// WriteOption configures how a [Manifest] is written.
type WriteOption func(writeConfig) writeConfig

// WithBare omits the header, prolog, and epilog.
func WithBare(bare bool) WriteOption {
	return func(c writeConfig) writeConfig {
		c.bare = bare

		return c
	}
}

// WithSplit distributes the builds over n part files included from the main
// manifest. Values below 2 disable splitting.
func WithSplit(n int) WriteOption {
	return func(c writeConfig) writeConfig {
		c.split = n

		return c
	}
}

// WithFilters restricts the emitted builds, see [Emit].
func WithFilters(filters ...Filter) WriteOption {
	return func(c writeConfig) writeConfig {
		c.filters = append(c.filters, filters...)

		return c
	}
}

func makeWriteConfig(opts ...WriteOption) writeConfig {
	var c writeConfig

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// Header is the dependency header of a manifest.
type Header struct {
	Deps   []string
	Digest string
}

// Header computes the header describing the current meta dependencies.
func (m *Manifest) Header() (Header, error) {
	deps := m.Meta.Sorted()

	digest, err := Digest(deps...)
	if err != nil {
		return Header{}, err
	}

	return Header{Deps: deps, Digest: digest}, nil
}

// Digest returns the hex blake3 digest of the named files, combined in the
// given order. A missing file contributes its name only.
func Digest(paths ...string) (string, error) {
	h := blake3.New()

	for _, path := range paths {
		sum, err := fileDigest(path)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(h, "%s  %s\n", sum, path)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "-", nil
	}

	if err != nil {
		return "", ErrManifest.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	hf := blake3.New()
	if _, err := io.Copy(hf, f); err != nil {
		return "", ErrManifest.Wrap(err).With(slog.String("path", path))
	}

	return fmt.Sprintf("%x", hf.Sum(nil)), nil
}

// Render writes the whole manifest to w. Splitting is ignored.
func (m *Manifest) Render(w io.Writer, opts ...WriteOption) error {
	c := makeWriteConfig(opts...)

	var buf bytes.Buffer

	if err := m.renderHead(&buf, c); err != nil {
		return err
	}

	for b := range m.Graph.Builds() {
		if err := renderBuild(&buf, b, c.filters); err != nil {
			return err
		}
	}

	m.renderTail(&buf, c)

	_, err := w.Write(buf.Bytes())

	return err
}

// WriteFile writes the manifest to path, and its parts next to it when
// splitting. Files whose content did not change are left untouched. It
// returns the number of files written.
func (m *Manifest) WriteFile(path string, opts ...WriteOption) (int, error) {
	c := makeWriteConfig(opts...)

	if c.split < 2 {
		var buf bytes.Buffer
		if err := m.Render(&buf, opts...); err != nil {
			return 0, err
		}

		return writeIfChanged(path, buf.Bytes())
	}

	parts := make([]bytes.Buffer, c.split)

	i := 0

	for b := range m.Graph.Builds() {
		ok, err := Emit(b, c.filters...)
		if err != nil {
			return 0, err
		}

		if !ok {
			continue
		}

		writeBuild(&parts[i%c.split], b)
		i++
	}

	var main bytes.Buffer

	if err := m.renderHead(&main, c); err != nil {
		return 0, err
	}

	written := 0

	for i := range parts {
		name := path + "." + strconv.Itoa(i)
		fmt.Fprintf(&main, "subninja %s\n", name)

		n, err := writeIfChanged(name, parts[i].Bytes())
		if err != nil {
			return written, err
		}

		written += n
	}

	m.renderTail(&main, c)

	n, err := writeIfChanged(path, main.Bytes())

	return written + n, err
}

func (m *Manifest) renderHead(buf *bytes.Buffer, c writeConfig) error {
	if c.bare {
		return nil
	}

	h, err := m.Header()
	if err != nil {
		return err
	}

	for _, dep := range h.Deps {
		buf.WriteString(headerDep + dep + "\n")
	}

	buf.WriteString(headerDigest + h.Digest + "\n")
	buf.WriteString(headerEnd + "\n")

	for _, line := range m.Prolog {
		buf.WriteString(Unescape(line) + "\n")
	}

	return nil
}

func (m *Manifest) renderTail(buf *bytes.Buffer, c writeConfig) {
	if c.bare {
		return
	}

	for _, line := range m.Epilog {
		buf.WriteString(Unescape(line) + "\n")
	}
}

func renderBuild(buf *bytes.Buffer, b *Build, filters []Filter) error {
	ok, err := Emit(b, filters...)
	if err != nil || !ok {
		return err
	}

	writeBuild(buf, b)

	return nil
}

func writeBuild(buf *bytes.Buffer, b *Build) {
	buf.WriteString("build " + Unescape(b.Artifact) + ": " + Unescape(b.Rule))

	for _, dep := range b.Deps {
		buf.WriteString(" " + Unescape(dep))
	}

	if len(b.Implicit) > 0 {
		buf.WriteString(" |")

		for _, dep := range b.Implicit.Sorted() {
			buf.WriteString(" " + Unescape(dep))
		}
	}

	if len(b.OrderOnly) > 0 {
		buf.WriteString(" ||")

		for _, dep := range b.OrderOnly.Sorted() {
			buf.WriteString(" " + Unescape(dep))
		}
	}

	buf.WriteByte('\n')

	for _, k := range sortedKeys(b.Vars) {
		buf.WriteString("    " + Unescape(k) + " = " + Unescape(b.Vars[k]) + "\n")
	}

	if b.Pool != "" {
		buf.WriteString("    pool = " + Unescape(b.Pool) + "\n")
	}

	buf.WriteByte('\n')
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Unescape renders placeholder bytes as literal dollars.
func Unescape(s string) string {
	return strings.ReplaceAll(s, string(pkg.EscapedDollar), "$")
}

func writeIfChanged(path string, data []byte) (int, error) {
	if old, err := os.ReadFile(path); err == nil &&
		len(old) == len(data) && xxh3.Hash(old) == xxh3.Hash(data) {
		return 0, nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, ErrManifest.Wrap(err).With(slog.String("path", path))
	}

	return 1, nil
}

// ReadHeader parses the dependency header at the start of r. A manifest
// without header yields the zero Header.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()

		switch {
		case strings.HasPrefix(line, headerDep):
			h.Deps = append(h.Deps, strings.TrimPrefix(line, headerDep))

		case strings.HasPrefix(line, headerDigest):
			h.Digest = strings.TrimPrefix(line, headerDigest)

		case line == headerEnd:
			return h, nil

		default:
			return Header{}, nil
		}
	}

	if err := sc.Err(); err != nil {
		return Header{}, ErrManifest.Wrap(err)
	}

	return Header{}, nil
}

// Stale reports whether the manifest at path must be regenerated: it is
// missing, has no header, or one of its meta dependencies is missing or
// changed content since it was written.
func Stale(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}

	if err != nil {
		return false, ErrManifest.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return false, err
	}

	if h.Digest == "" {
		return true, nil
	}

	for _, dep := range h.Deps {
		if _, err := os.Stat(dep); err != nil {
			return true, nil //nolint:nilerr // a missing dependency means stale
		}
	}

	digest, err := Digest(h.Deps...)
	if err != nil {
		return false, err
	}

	return digest != h.Digest, nil
}
