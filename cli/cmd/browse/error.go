package browse

import "github.com/ardnew/ajnin/pkg"

// Sentinel errors.
var (
	ErrOutOfBounds = pkg.NewError("index out of range")
	ErrEmptyGraph  = pkg.NewError("graph has no builds")
)
