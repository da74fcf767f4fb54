// Package server is the HTTP adapter of the GraphQL engine.
//
// A request flows through the body decoder, the request assembler, the
// execution coordinator and the response encoder. Protocol failures at any
// stage short-circuit into a single error object. OPTIONS requests are
// answered as CORS preflights and GET requests from browsers can be served
// the GraphiQL explorer instead of JSON.
package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	events "github.com/hanpama/graphqlview/internal/events"
	executor "github.com/hanpama/graphqlview/internal/executor"
	graphiql "github.com/hanpama/graphqlview/internal/graphiql"
	reqctx "github.com/hanpama/graphqlview/internal/reqctx"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Values of events.HTTPFinish.Kind.
const (
	KindGraphQL   = "graphql"
	KindGraphiQL  = "graphiql"
	KindPreflight = "preflight"
	KindError     = "error"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	opt      Options
	schema   *schema.Schema
	exec     *executor.Executor
	graphiql *graphiql.Renderer
}

// New creates a handler executing against sch with runtime.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	if runtime == nil {
		return nil, errors.New("server: a runtime is required")
	}
	if sch == nil || sch.GetQueryType() == nil {
		return nil, errors.New("server: a schema with a query type is required")
	}
	op := defaultOptions()
	for _, f := range opts {
		f(&op)
	}
	return &Handler{
		opt:      op,
		schema:   sch,
		exec:     executor.NewExecutor(runtime, sch, executor.WithMiddleware(op.Middleware...)),
		graphiql: graphiql.NewRenderer(op.GraphiQLTemplate, op.GraphiQLVersion),
	}, nil
}

// served summarizes a response for events and logs.
type served struct {
	status     int
	kind       string
	batch      bool
	operations int
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqctx.NewContext(ctx, r.Header.Get(reqctx.Header))
	ctx = reqctx.WithRequest(ctx, r)
	if h.opt.ContextFunc != nil {
		ctx = reqctx.WithValue(ctx, h.opt.ContextFunc(r))
	}
	w.Header().Set(reqctx.Header, rid)

	sw := &statusWriter{ResponseWriter: w}
	res := served{status: http.StatusOK, kind: KindGraphQL}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		if rec := recover(); rec != nil {
			h.opt.Logger.Error("panic while serving request",
				zap.String("request_id", rid),
				zap.Any("panic", rec),
				zap.Bool("response_written", sw.status != 0),
				zap.Stack("stack"),
			)
			if sw.status != 0 {
				// Too late for an error response.
				res = served{status: sw.status, kind: KindError}
			} else {
				res = h.fail(sw, r, errInternal, false)
			}
		}
		elapsed := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:  r,
			Status:   res.status,
			Kind:     res.kind,
			Batch:    res.batch,
			Duration: elapsed,
		})
		h.opt.Logger.Debug("served graphql request",
			zap.String("request_id", rid),
			zap.String("method", r.Method),
			zap.String("kind", res.kind),
			zap.Int("status", res.status),
			zap.Bool("batch", res.batch),
			zap.Int("operations", res.operations),
			zap.Duration("duration", elapsed),
		)
	}()

	res = h.serve(ctx, sw, r)
}

// statusWriter records the status once the response has started.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) served {
	if r.Method == http.MethodOptions {
		return h.preflight(w, r)
	}

	query := r.URL.Query()
	body, herr := decodeBody(r, h.opt.MaxBodyBytes)

	showGraphiQL := r.Method == http.MethodGet && h.opt.GraphiQL && !query.Has("raw") && wantsHTML(r)
	pretty := h.opt.Pretty || showGraphiQL || query.Has("pretty")

	if herr != nil {
		return h.fail(w, r, herr, pretty)
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return h.fail(w, r, errUnsupportedMethod, pretty)
	}

	params, herr := assemble(body, query, h.opt.Batch)
	if herr != nil {
		return h.fail(w, r, herr, pretty)
	}

	req := &request{
		method: r.Method,
		params: params,
		batch:  body.isBatch,
		catch:  showGraphiQL,
	}
	if h.opt.RootFunc != nil {
		req.root = h.opt.RootFunc(r)
	}
	outcomes := h.executeAll(ctx, req)

	// The first transport error, in request order, replaces the response.
	for _, o := range outcomes {
		if t, ok := o.(TransportErrorOutcome); ok {
			res := h.fail(w, r, t.Err, pretty)
			res.batch = req.batch
			return res
		}
	}

	payload, err := encodeOutcomes(outcomes, params, req.batch, pretty)
	if err != nil {
		h.opt.Logger.Error("encode graphql response", zap.Error(err))
		return h.fail(w, r, errInternal, pretty)
	}

	if showGraphiQL {
		return h.renderGraphiQL(w, r, params[0], payload)
	}

	status := statusOf(outcomes)
	h.write(w, r, status, contentTypeJSON, payload)
	return served{status: status, kind: KindGraphQL, batch: req.batch, operations: len(params)}
}

// preflight answers CORS preflight requests.
func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) served {
	method := strings.ToUpper(r.Header.Get("Access-Control-Request-Method"))
	if method != http.MethodGet && method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return served{status: http.StatusBadRequest, kind: KindPreflight}
	}
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
	hdr.Set("Access-Control-Allow-Methods", allowedMethods)
	hdr.Set("Access-Control-Max-Age", strconv.Itoa(h.opt.MaxAge))
	w.WriteHeader(http.StatusOK)
	return served{status: http.StatusOK, kind: KindPreflight}
}

func (h *Handler) renderGraphiQL(w http.ResponseWriter, r *http.Request, p Params, result []byte) served {
	d := graphiql.Data{
		Query:         p.Query,
		OperationName: p.OperationName,
		Result:        string(result),
	}
	if p.Variables != nil {
		b, err := marshal(p.Variables, true)
		if err == nil {
			vars := string(b)
			d.Variables = &vars
		}
	}
	var buf bytes.Buffer
	if err := h.graphiql.Render(&buf, d); err != nil {
		h.opt.Logger.Error("render graphiql", zap.Error(err))
		return h.fail(w, r, errInternal, true)
	}
	h.write(w, r, http.StatusOK, contentTypeHTML, buf.Bytes())
	return served{status: http.StatusOK, kind: KindGraphiQL, operations: 1}
}

// fail writes e as the single error object of the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, e *HTTPError, pretty bool) served {
	for k, vs := range e.Headers {
		w.Header()[http.CanonicalHeaderKey(k)] = vs
	}
	body, err := marshal(transportBody(e), pretty)
	if err != nil {
		body = []byte(`{"errors":[{"message":"Internal server error.","locations":null,"path":null}]}`)
	}
	h.opt.Logger.Debug("rejected graphql request",
		zap.String("method", r.Method),
		zap.Int("status", e.Status),
		zap.String("message", e.Message),
	)
	h.write(w, r, e.Status, contentTypeJSON, body)
	return served{status: e.Status, kind: KindError}
}

// write sends body, gzipped when compression is enabled and accepted.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, contentType string, body []byte) {
	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	if h.opt.Compression && acceptsGzip(r) {
		hdr.Set("Content-Encoding", "gzip")
		hdr.Add("Vary", "Accept-Encoding")
		hdr.Del("Content-Length")
		w.WriteHeader(status)
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(body); err != nil {
			h.opt.Logger.Debug("write gzip response", zap.Error(err))
		}
		_ = zw.Close()
		return
	}
	hdr.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(name, "gzip") {
			return true
		}
	}
	return false
}
