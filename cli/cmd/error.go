package cmd

import "github.com/ardnew/ajnin/pkg"

var (
	ErrYAMLMarshal = pkg.NewError("marshal YAML")
	ErrWriteConfig = pkg.NewError("write configuration file")
	ErrFileExists  = pkg.NewError("file exists (use --force to overwrite)")
	ErrWriteOutput = pkg.NewError("write output")
	ErrNoScript    = pkg.NewError("script required (stdin cannot be reloaded)")
	ErrUnknownRoot = pkg.NewError("unknown root artifact")
	ErrBareStale   = pkg.NewError("staleness needs the manifest header (drop --bare)")
)
