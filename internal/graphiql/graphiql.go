// Package graphiql renders the GraphiQL explorer shell.
//
// Templates are text/template sources. The values a template sees are
// {{ .Version }} plus the four echoed fields {{ .Query }}, {{ .Variables }},
// {{ .OperationName }} and {{ .Result }}, which must be passed through
// tojson before being placed inside the page script.
package graphiql

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"text/template"

	"github.com/pkg/errors"
)

// DefaultVersion is the GraphiQL release loaded by the default template.
const DefaultVersion = "0.7.1"

//go:embed graphiql.html
var defaultSource string

var defaultTemplate = template.Must(Parse(defaultSource))

// Data is the render context of one explorer response. Nil pointers render
// as JSON null.
type Data struct {
	Version       string
	Query         *string
	Variables     *string
	OperationName *string
	// Result is the already encoded JSON response.
	Result string
}

// Parse compiles a template source with the tojson function available.
func Parse(source string) (*template.Template, error) {
	t, err := template.New("graphiql").Funcs(template.FuncMap{"tojson": toJSON}).Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "parse graphiql template")
	}
	return t, nil
}

// Renderer renders Data with a fixed template and version.
type Renderer struct {
	tmpl    *template.Template
	version string
}

// NewRenderer returns a renderer. A nil template selects the default page and
// an empty version selects DefaultVersion.
func NewRenderer(tmpl *template.Template, version string) *Renderer {
	if tmpl == nil {
		tmpl = defaultTemplate
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Renderer{tmpl: tmpl, version: version}
}

// Version reports the GraphiQL version the renderer loads.
func (r *Renderer) Version() string { return r.version }

// Render writes the page for d. The page is buffered so a failing template
// leaves w untouched.
func (r *Renderer) Render(w io.Writer, d Data) error {
	if d.Version == "" {
		d.Version = r.version
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, d); err != nil {
		return errors.Wrap(err, "render graphiql")
	}
	_, err := buf.WriteTo(w)
	return err
}

// toJSON encodes v as a JavaScript literal. encoding/json escapes <, > and &
// so the output cannot close the surrounding script element.
func toJSON(v any) (string, error) {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return "null", nil
		}
		v = *p
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
