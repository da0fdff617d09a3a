//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the ajnin module embedded at build time.
var Version = strings.TrimSpace(version)

const (
	// Name is the canonical command and module identifier used across the
	// project. It appears in help text, default config paths, and the
	// manifest header.
	Name = "ajnin"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Ninja build file generator"
)

// EscapedDollar stands in for a literal '$' from the moment a script is
// loaded until the manifest is written, so that evaluation never mistakes it
// for a reference.
const EscapedDollar = '\x1b'

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	// Name is the author's preferred name or handle.
	Name string
	// Email is the author's contact email address.
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
