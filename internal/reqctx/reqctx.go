// Package reqctx carries request-scoped values through a context: the request
// id, the originating *http.Request and the configured context value that
// resolvers read.
package reqctx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the request / response header carrying the request id.
const Header = "X-Request-Id"

type (
	idKey      struct{}
	requestKey struct{}
	valueKey   struct{}
)

// NewContext returns a copy of parent carrying id. An empty id is replaced by
// a random UUID. It also returns the stored id.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(parent, idKey{}, id), id
}

// FromContext extracts the request id from ctx.
// It returns the id and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok
}

// WithRequest stores the HTTP request being served.
func WithRequest(parent context.Context, r *http.Request) context.Context {
	return context.WithValue(parent, requestKey{}, r)
}

// Request returns the HTTP request being served, or nil.
func Request(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey{}).(*http.Request)
	return r
}

// WithValue stores the context value configured on the handler.
func WithValue(parent context.Context, v any) context.Context {
	return context.WithValue(parent, valueKey{}, v)
}

// Value returns the configured context value, or nil.
func Value(ctx context.Context) any {
	return ctx.Value(valueKey{})
}
