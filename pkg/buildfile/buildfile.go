// Package buildfile renders the BUILD file that declares an npm library to
// Bazel.
//
// The output is one load statement and one rule call:
//
//	# @generated: Generated with npmgen
//
//	package(default_visibility = ['//visibility:public'])
//
//	load('@org_dropbox_rules_node//node:defs.bzl', 'npm_library')
//
//	npm_library(
//	    name = 'lodash',
//	    npm_req = 'lodash@4.17.4',
//	    shrinkwrap = 'npm-shrinkwrap.json',
//	    contents = [
//	        'lodash/package.json',
//	    ],
//	)
package buildfile

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"go.starlark.net/syntax"

	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/fsutil"
)

// FileName is the default BUILD filename.
const FileName = "BUILD"

// Header marks the file as generated.
const Header = "# @generated: Generated with npmgen"

// Rule is the single rule declared by a generated BUILD file.
type Rule struct {
	Type       string // rule kind, e.g. "npm_library"
	Load       string // label of the .bzl file defining Type
	Name       string
	NpmReq     string
	Shrinkwrap string
	Contents   []string
}

var tmpl = template.Must(template.New("BUILD").Funcs(template.FuncMap{
	"quote": Quote,
}).Parse(`{{.Header}}

package(default_visibility = ['//visibility:public'])

load({{quote .Rule.Load}}, {{quote .Rule.Type}})

{{.Rule.Type}}(
    name = {{quote .Rule.Name}},
    npm_req = {{quote .Rule.NpmReq}},
    shrinkwrap = {{quote .Rule.Shrinkwrap}},
    contents = [
{{- range .Rule.Contents}}
        {{quote .}},
{{- end}}
    ],
)
`))

// Render returns the BUILD file text for r. The text is parsed as Starlark
// before it is returned; a rule that does not render to valid syntax fails
// with ErrCodeInvalidDescriptor.
func Render(r Rule) ([]byte, error) {
	if r.Type == "" || !isIdent(r.Type) {
		return nil, errors.New(errors.ErrCodeInvalidDescriptor, "invalid rule type %q", r.Type)
	}
	var buf bytes.Buffer
	data := struct {
		Header string
		Rule   Rule
	}{Header, r}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", FileName)
	}
	if _, err := syntax.Parse(FileName, buf.Bytes(), 0); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "generated %s does not parse", FileName)
	}
	return buf.Bytes(), nil
}

// Emit writes r to dir/BUILD and returns the path written.
func Emit(dir string, r Rule) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := EmitFile(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// EmitFile writes r to path, creating the parent directory and replacing
// any existing file atomically. Nothing is written if rendering fails.
func EmitFile(path string, r Rule) error {
	text, err := Render(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}
	return fsutil.WriteFile(path, text, 0644)
}

func isIdent(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
