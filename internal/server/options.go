package server

import (
	"net/http"
	"text/template"
	"time"

	"go.uber.org/zap"

	executor "github.com/hanpama/graphqlview/internal/executor"
)

// Options is the handler configuration. It is built once by New and never
// mutated while serving.
type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses for every request.
	Pretty bool

	// MaxBodyBytes limits the size of the (decompressed) request body.
	// 0 means unlimited.
	MaxBodyBytes int64

	// Batch accepts JSON array bodies carrying several operations.
	Batch bool

	// MaxAge is the Access-Control-Max-Age reported to preflight requests,
	// in seconds.
	MaxAge int

	// GraphiQL serves the in-browser IDE to GET requests accepting HTML.
	GraphiQL         bool
	GraphiQLVersion  string
	GraphiQLTemplate *template.Template

	// Compression gzips responses for clients sending Accept-Encoding: gzip.
	Compression bool

	// RootFunc and ContextFunc produce the root value and the context value
	// of each request. The With*Value options install constant functions.
	RootFunc    func(*http.Request) any
	ContextFunc func(*http.Request) any

	Middleware []executor.Middleware

	Logger *zap.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Timeout: 10 * time.Second,
		MaxAge:  86400,
		Logger:  zap.NewNop(),
	}
}

func WithTimeout(d time.Duration) Option  { return func(o *Options) { o.Timeout = d } }
func WithPretty(enable bool) Option       { return func(o *Options) { o.Pretty = enable } }
func WithMaxBodyBytes(n int64) Option     { return func(o *Options) { o.MaxBodyBytes = n } }
func WithBatch(enable bool) Option        { return func(o *Options) { o.Batch = enable } }
func WithMaxAge(seconds int) Option       { return func(o *Options) { o.MaxAge = seconds } }
func WithGraphiQL(enable bool) Option     { return func(o *Options) { o.GraphiQL = enable } }
func WithGraphiQLVersion(v string) Option { return func(o *Options) { o.GraphiQLVersion = v } }
func WithCompression(enable bool) Option  { return func(o *Options) { o.Compression = enable } }

// WithGraphiQLTemplate replaces the explorer page. Build t with
// graphiql.Parse so that tojson is defined.
func WithGraphiQLTemplate(t *template.Template) Option {
	return func(o *Options) { o.GraphiQLTemplate = t }
}

func WithRootValue(v any) Option {
	return func(o *Options) { o.RootFunc = func(*http.Request) any { return v } }
}

func WithRootFunc(f func(*http.Request) any) Option {
	return func(o *Options) { o.RootFunc = f }
}

// WithContextValue sets the value resolvers read through reqctx.Value.
func WithContextValue(v any) Option {
	return func(o *Options) { o.ContextFunc = func(*http.Request) any { return v } }
}

func WithContextFunc(f func(*http.Request) any) Option {
	return func(o *Options) { o.ContextFunc = f }
}

// WithMiddleware appends field middleware, outermost first.
func WithMiddleware(mw ...executor.Middleware) Option {
	return func(o *Options) { o.Middleware = append(o.Middleware, mw...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
