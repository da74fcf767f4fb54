// Package resolvers implements executor.Runtime over in-process Go functions.
//
// Resolvers are registered per "Type.field" key. Sync resolvers run inline
// during the executor's expansion, Async and Batch resolvers are collected per
// execution depth and run in parallel, grouped by (type, field). Fields
// without a resolver read the value from their parent: a map key, a struct
// field or a `graphql` struct tag.
//
// Concurrency
//   - Groups of one batch run in parallel, bounded by WithConcurrency.
//   - Async resolvers in a group run one goroutine per task; Batch resolvers
//     are called once per group with every task of the group.
//   - Panics inside resolvers are recovered and reported as field errors.
package resolvers

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	executor "github.com/hanpama/graphqlview/internal/executor"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

// Func resolves one field of one parent value.
type Func func(ctx context.Context, source any, args map[string]any) (any, error)

// BatchFunc resolves one field for many parents at once. It must return one
// value per source, in order. A returned error fails every element.
type BatchFunc func(ctx context.Context, sources []any, args []map[string]any) ([]any, error)

// Resolver is a registered field resolver.
type Resolver struct {
	fn    Func
	batch BatchFunc
	async bool
}

// Sync wraps f as a resolver that runs inline.
func Sync(f Func) Resolver { return Resolver{fn: f} }

// Async wraps f as a resolver that is batched per execution depth.
func Async(f Func) Resolver { return Resolver{fn: f, async: true} }

// Batch wraps f as a resolver receiving every task of a depth at once.
func Batch(f BatchFunc) Resolver { return Resolver{batch: f, async: true} }

// Map binds resolvers to "Type.field" keys.
type Map map[string]Resolver

// TypeResolver returns the concrete object type name of an abstract value.
type TypeResolver func(ctx context.Context, value any) (string, error)

// Serializer converts a leaf value into its JSON form.
type Serializer func(value any) (any, error)

// Runtime implements executor.Runtime.
type Runtime struct {
	schema        *schema.Schema
	fields        Map
	scalars       map[string]Serializer
	typeResolvers map[string]TypeResolver
	concurrency   int
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

// WithScalar registers the serializer of a custom scalar. Built-in scalars
// can be overridden the same way.
func WithScalar(name string, s Serializer) Option {
	return func(r *Runtime) { r.scalars[name] = s }
}

// WithTypeResolver registers the type resolver of an interface or union.
func WithTypeResolver(abstractType string, f TypeResolver) Option {
	return func(r *Runtime) { r.typeResolvers[abstractType] = f }
}

// WithConcurrency bounds the number of goroutines one batch uses. Zero or
// less means unbounded.
func WithConcurrency(n int) Option {
	return func(r *Runtime) { r.concurrency = n }
}

// New binds fields to sch. Fields bound to Async or Batch resolvers are
// marked async on the schema, so New must run before the schema serves
// requests.
func New(sch *schema.Schema, fields Map, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		schema:        sch,
		fields:        make(Map, len(fields)),
		scalars:       make(map[string]Serializer),
		typeResolvers: make(map[string]TypeResolver),
	}
	for _, o := range opts {
		o(r)
	}
	for key, res := range fields {
		typeName, fieldName, ok := strings.Cut(key, ".")
		if !ok {
			return nil, errors.Errorf("resolver key %q must have the form Type.field", key)
		}
		t := sch.Types[typeName]
		if t == nil {
			return nil, errors.Errorf("resolver %q: type %q is not defined", key, typeName)
		}
		f := t.Field(fieldName)
		if f == nil {
			return nil, errors.Errorf("resolver %q: type %q has no field %q", key, typeName, fieldName)
		}
		if res.fn == nil && res.batch == nil {
			return nil, errors.Errorf("resolver %q has no function", key)
		}
		f.SetAsync(res.async)
		r.fields[key] = res
	}
	for name := range r.typeResolvers {
		t := sch.Types[name]
		if t == nil || (t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion) {
			return nil, errors.Errorf("type resolver %q: not an interface or union", name)
		}
	}
	return r, nil
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if res, ok := r.fields[objectType+"."+field]; ok && res.fn != nil {
		return call(ctx, res.fn, source, args)
	}
	return Property(source, field)
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	type group struct {
		key  string
		idxs []int
	}
	var groups []*group
	byKey := make(map[string]*group)
	for i, t := range tasks {
		key := t.ObjectType + "." + t.Field
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.idxs = append(g.idxs, i)
	}

	var eg errgroup.Group
	if r.concurrency > 0 {
		eg.SetLimit(r.concurrency)
	}
	for _, g := range groups {
		res, ok := r.fields[g.key]
		switch {
		case ok && res.batch != nil:
			eg.Go(func() error {
				r.runBatch(ctx, res.batch, tasks, g.idxs, results)
				return nil
			})
		case ok && res.fn != nil:
			for _, idx := range g.idxs {
				eg.Go(func() error {
					v, err := call(ctx, res.fn, tasks[idx].Source, tasks[idx].Args)
					results[idx] = executor.AsyncResolveResult{Value: v, Error: err}
					return nil
				})
			}
		default:
			for _, idx := range g.idxs {
				v, err := Property(tasks[idx].Source, tasks[idx].Field)
				results[idx] = executor.AsyncResolveResult{Value: v, Error: err}
			}
		}
	}
	_ = eg.Wait()
	return results
}

func (r *Runtime) runBatch(ctx context.Context, f BatchFunc, tasks []executor.AsyncResolveTask, idxs []int, results []executor.AsyncResolveResult) {
	sources := make([]any, len(idxs))
	args := make([]map[string]any, len(idxs))
	for i, idx := range idxs {
		sources[i] = tasks[idx].Source
		args[i] = tasks[idx].Args
	}
	values, err := callBatch(ctx, f, sources, args)
	if err == nil && len(values) != len(idxs) {
		err = errors.Errorf("batch resolver returned %d values for %d sources", len(values), len(idxs))
	}
	for i, idx := range idxs {
		if err != nil {
			results[idx] = executor.AsyncResolveResult{Error: err}
			continue
		}
		results[idx] = executor.AsyncResolveResult{Value: values[i]}
	}
}

// ResolveType consults a registered TypeResolver, then a "__typename" map
// key, a Typename method, and finally the Go type name of the value.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if f, ok := r.typeResolvers[abstractType]; ok {
		return f(ctx, value)
	}
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	case interface{ Typename() string }:
		return v.Typename(), nil
	}
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt != nil && rt.Name() != "" {
		if t := r.schema.Types[rt.Name()]; t != nil && t.Kind == schema.TypeKindObject {
			return rt.Name(), nil
		}
	}
	return "", fmt.Errorf("Abstract type %s must resolve to an Object type at runtime. Either the %s type should provide a type resolver or each possible type should provide a __typename.", abstractType, abstractType)
}

func (r *Runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	if s, ok := r.scalars[scalarOrEnumTypeName]; ok {
		return s(value)
	}
	if t := r.schema.Types[scalarOrEnumTypeName]; t != nil && t.Kind == schema.TypeKindEnum {
		return serializeEnum(t, value)
	}
	return serializeBuiltin(scalarOrEnumTypeName, value)
}

func call(ctx context.Context, f Func, source any, args map[string]any) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return f(ctx, source, args)
}

func callBatch(ctx context.Context, f BatchFunc, sources []any, args []map[string]any) (v []any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return f(ctx, sources, args)
}

// PanicError is returned for a recovered resolver panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("%v", e.Value) }

func panicError(p any) error {
	return &PanicError{Value: p, Stack: debug.Stack()}
}
