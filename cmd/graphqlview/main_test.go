package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	demo "github.com/hanpama/graphqlview/internal/demo"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestPrintSchema(t *testing.T) {
	out := execute(t, "print-schema")
	require.Contains(t, out, "type QueryRoot {")
	require.Contains(t, out, "type MutationRoot {")

	out = execute(t, "print-schema", "--schema.name", "async")
	require.Contains(t, out, "type AsyncQueryType {")
}

func TestPrintSchemaToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.Empty(t, execute(t, "print-schema", "--out", path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "type QueryRoot {")
}

func TestConfigPrecedence(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("schema:\n  name: async\n"), 0o644))

	out := execute(t, "--config", cfg, "print-schema")
	require.Contains(t, out, "AsyncQueryType")

	t.Setenv("GRAPHQLVIEW_SCHEMA_NAME", "default")
	out = execute(t, "--config", cfg, "print-schema")
	require.Contains(t, out, "QueryRoot")

	out = execute(t, "--config", cfg, "print-schema", "--schema.name", "async")
	require.Contains(t, out, "AsyncQueryType")
}

func TestUnknownSchema(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"print-schema", "--schema.name", "nope"})
	require.Error(t, root.Execute())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := newLogger("debug", format)
		require.NoError(t, err, format)
		require.NotNil(t, l)
	}
	_, err := newLogger("loud", "json")
	require.Error(t, err)
	_, err = newLogger("info", "xml")
	require.Error(t, err)
}

func serveConfig(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	conf := viper.New()
	cmd := newServeCmd(conf)
	require.NoError(t, cmd.ParseFlags(args))
	require.NoError(t, loadConfig(conf, cmd))
	return conf
}

func TestRouter(t *testing.T) {
	conf := serveConfig(t, "--server.path", "/api")
	app, err := demo.Default()
	require.NoError(t, err)
	h, err := newHandler(conf, app, zap.NewNop())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	r := newRouter(conf, h, reg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api?query=%7B__schema%7BqueryType%7Bname%7D%7D%7D", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, `{"data":{"__schema":{"queryType":{"name":"QueryRoot"}}}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "probe_total"))
}

func TestHandlerWithoutIntrospection(t *testing.T) {
	conf := serveConfig(t, "--server.introspection=false")
	app, err := demo.Default()
	require.NoError(t, err)
	h, err := newHandler(conf, app, zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?query=%7B__schema%7BqueryType%7Bname%7D%7D%7D", nil))
	require.Contains(t, w.Body.String(), "Cannot query field '__schema' on type 'QueryRoot'.")
	require.NotContains(t, w.Body.String(), `"name":"QueryRoot"`)
}

func TestHandlerTemplateOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>{{ .Query | tojson }}</p>`), 0o644))
	conf := serveConfig(t, "--server.graphiql-template", path)
	app, err := demo.Default()
	require.NoError(t, err)
	h, err := newHandler(conf, app, zap.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/graphql?query=%7Btest%7D", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, `<p>"{test}"</p>`, w.Body.String())

	conf = serveConfig(t, "--server.graphiql-template", filepath.Join(t.TempDir(), "missing.html"))
	_, err = newHandler(conf, app, zap.NewNop())
	require.Error(t, err)
}
