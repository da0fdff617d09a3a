package eval

import "github.com/ardnew/ajnin/pkg"

var (
	ErrInvalidString     = pkg.NewError("invalid string")
	ErrMultipleGlobs     = pkg.NewError("multiple globs")
	ErrGlobNotAllowed    = pkg.NewError("glob not allowed")
	ErrNoGlob            = pkg.NewError("no glob")
	ErrListNotEnumerated = pkg.NewError("list not enumerated yet")
	ErrListExists        = pkg.NewError("list already exists")
	ErrNoWorkDir         = pkg.NewError("no working directory")
	ErrUndefinedTemplate = pkg.NewError("undefined template")
	ErrConflictParam     = pkg.NewError("conflicting template parameter")
	ErrParamIndex        = pkg.NewError("template parameter index out of range")
	ErrNestedTemplate    = pkg.NewError("template declared inside a template")
	ErrPropagateOutside  = pkg.NewError("propagate outside a template")
	ErrTemplateCycle     = pkg.NewError("template instantiates itself")
	ErrIncludeCycle      = pkg.NewError("script includes itself")
	ErrReadList          = pkg.NewError("failed to read list file")
	ErrExecute           = pkg.NewError("external command failed")
	ErrUnknownStatement  = pkg.NewError("unknown statement")
)
