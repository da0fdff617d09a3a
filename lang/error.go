package lang

import "github.com/ardnew/ajnin/pkg"

var (
	ErrReadInput        = pkg.NewError("failed to read input")
	ErrDecode           = pkg.NewError("failed to decode script")
	ErrStatementShape   = pkg.NewError("malformed statement")
	ErrUnknownStatement = pkg.NewError("unknown statement")
	ErrInvalidListID    = pkg.NewError("invalid list identifier")
	ErrInvalidRef       = pkg.NewError("invalid list reference")
)
