package graphiql

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestRenderDefaultTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := NewRenderer(nil, "").Render(&buf, Data{
		Query:  ptr("{test}"),
		Result: "{\n  \"data\": {\n    \"test\": \"Hello World\"\n  }\n}",
	})
	require.NoError(t, err)
	page := buf.String()

	require.Contains(t, page, "//cdn.jsdelivr.net/graphiql/0.7.1/graphiql.min.js")
	require.Contains(t, page, `query: "{test}",`)
	require.Contains(t, page, `response: "{\n  \"data\": {\n    \"test\": \"Hello World\"\n  }\n}",`)
	require.Contains(t, page, "variables: null,")
	require.Contains(t, page, "operationName: null,")
}

func TestRenderEscapesScriptBreakout(t *testing.T) {
	var buf bytes.Buffer
	err := NewRenderer(nil, "").Render(&buf, Data{Query: ptr("</script><script>alert(1)</script>")})
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "</script><script>alert(1)")
}

func TestRenderOverride(t *testing.T) {
	tmpl, err := Parse(`v={{ .Version }} q={{ .Query | tojson }} op={{ tojson .OperationName }}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	r := NewRenderer(tmpl, "1.0.0")
	require.Equal(t, "1.0.0", r.Version())
	require.NoError(t, r.Render(&buf, Data{Query: ptr("{a}"), OperationName: ptr("A")}))
	require.Equal(t, `v=1.0.0 q="{a}" op="A"`, buf.String())
}

func TestParseError(t *testing.T) {
	_, err := Parse("{{ .Query ")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "parse graphiql template"))
}
