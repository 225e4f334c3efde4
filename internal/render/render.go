// Package render turns an extracted payload into the Go file written next
// to the source.
package render

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header marks rendered files as generated.
const Header = "// Code generated by handoff. DO NOT EDIT.\n\n"

// GoFile renders payload as a file of package pkg. When payload is not valid
// Go the returned file is a marker that fails to compile with the parse error
// and the payload in its message, and valid is false.
func GoFile(pkg, payload string) (out []byte, valid bool) {
	if pkg == "" {
		pkg = "main"
	}
	src := payload
	if !hasPackageClause(payload) {
		src = "package " + pkg + "\n\n" + payload
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "payload.go", src, parser.ParseComments)
	if err != nil {
		return Marker(pkg, fmt.Sprintf("%v\n\n%s", err, payload)), false
	}
	f.Name.Name = pkg

	var buf bytes.Buffer
	buf.WriteString(Header)
	if err := format.Node(&buf, fset, f); err != nil {
		return Marker(pkg, fmt.Sprintf("%v\n\n%s", err, payload)), false
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), true
}

// Marker is a file whose only declaration is a type error carrying diagnostic,
// so `go build` reports it.
func Marker(pkg, diagnostic string) []byte {
	return fmt.Appendf(nil, "%spackage %s\n\n// handoff did not receive valid Go code. Edit the source or delete the cached response.\nvar _ int = %s\n",
		Header, pkg, strconv.Quote(diagnostic))
}

// OutputPath is where the file generated for source is written:
// x.go becomes x_handoff.go and x_test.go becomes x_handoff_test.go.
func OutputPath(source string) string {
	dir, base := filepath.Split(source)
	base = strings.TrimSuffix(base, ".go")
	if stem, ok := strings.CutSuffix(base, "_test"); ok {
		return filepath.Join(dir, stem+"_handoff_test.go")
	}
	return filepath.Join(dir, base+"_handoff.go")
}

// Write stores data at path, creating its directory.
func Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func hasPackageClause(src string) bool {
	_, err := parser.ParseFile(token.NewFileSet(), "", src, parser.PackageClauseOnly)
	return err == nil
}
