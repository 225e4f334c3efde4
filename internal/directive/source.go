package directive

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"strings"
)

// Prefix marks a directive comment line.
const Prefix = "//handoff:"

// ErrUnavailable means the source file could not be read. Callers treat it
// as nothing to do rather than a failure.
var ErrUnavailable = errors.New("source unavailable")

// Source is a Go file handed off for generation.
type Source struct {
	Path    string
	Content string
	// Package is empty when the file has no parsable package clause.
	Package string
	Options Options
}

// LoadSource reads path and parses its directives in file order; later
// directives override earlier ones.
func LoadSource(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no source file given", ErrUnavailable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	src := &Source{Path: path, Content: string(data)}

	if f, err := parser.ParseFile(token.NewFileSet(), path, data, parser.PackageClauseOnly); err == nil {
		src.Package = f.Name.Name
	}

	for i, line := range strings.Split(src.Content, "\n") {
		text, ok := strings.CutPrefix(strings.TrimSpace(line), Prefix)
		if !ok {
			continue
		}
		opts, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid directive: %w", path, i+1, err)
		}
		src.Options = src.Options.Merge(opts)
	}
	return src, nil
}
