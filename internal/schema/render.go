package schema

import (
	"bytes"

	"github.com/vektah/gqlparser/v2/formatter"
)

// Render prints the schema as SDL. Built-in prelude definitions are left out.
// Schemas assembled in code without a Document render as an empty string.
func Render(s *Schema) string {
	if s.Document == nil {
		return ""
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatSchema(s.Document)
	return buf.String()
}
