package glob

import "github.com/ardnew/ajnin/pkg"

var (
	// ErrMultipleMarkers is returned when one segment holds more than one
	// marker.
	ErrMultipleMarkers = pkg.NewError("multiple glob markers in segment")

	// ErrSeparator is returned when a segment contains a path separator.
	ErrSeparator = pkg.NewError("path separator in segment")
)
