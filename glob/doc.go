// Package glob matches path segments against single-marker patterns and
// enumerates the filesystem with them.
//
// A pattern segment contains at most one [Marker]. The text a marker stands
// for is the segment's capture:
//
//	p := glob.MustCompile("lib$$.a")
//	r, s := p.Match("libz.a") // glob.Match, "z"
//
// [Search] and [SearchPattern] walk a directory tree one segment at a time,
// enumerating only the segments that carry a marker.
package glob
