package graph

import "github.com/ardnew/ajnin/pkg"

var (
	ErrRuleName     = pkg.NewError("cannot merge rules under different names")
	ErrConflictRule = pkg.NewError("conflicting rule")
	ErrConflictVar  = pkg.NewError("conflicting var")
	ErrConflictPool = pkg.NewError("conflicting pool")
	ErrNoArtifact   = pkg.NewError("build has no artifact")
	ErrFilter       = pkg.NewError("invalid filter")
	ErrManifest     = pkg.NewError("invalid manifest")
)
