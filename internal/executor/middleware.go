package executor

import "context"

// ResolveInfo describes the field a ResolveFunc is invoked for.
type ResolveInfo struct {
	ObjectType string
	Field      string
	Path       Path
	Async      bool
}

// ResolveFunc resolves a single field value.
type ResolveFunc func(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error)

// Middleware wraps field resolution. Middlewares registered with
// WithMiddleware run outermost first.
type Middleware func(next ResolveFunc) ResolveFunc

// Option configures an Executor.
type Option func(*Executor)

// WithMiddleware appends field middlewares.
func WithMiddleware(mw ...Middleware) Option {
	return func(e *Executor) { e.middleware = append(e.middleware, mw...) }
}

func chain(mw []Middleware, inner ResolveFunc) ResolveFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		inner = mw[i](inner)
	}
	return inner
}
