// Package introspection answers the __schema and __type meta fields.
//
// The introspection types themselves (__Schema, __Type, ...) come from the
// gqlparser prelude and are already part of every schema built from SDL.
// Wrap only adds the two meta fields to a copy of the query type and
// intercepts their resolution, delegating everything else to the base
// runtime.
package introspection

import (
	"context"

	executor "github.com/hanpama/graphqlview/internal/executor"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

// Wrapped pairs the introspection runtime with the schema it must be
// executed against.
type Wrapped struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with the meta fields. sch itself is not modified and is
// what introspection queries describe.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapped {
	rt := &runtime{base: base, described: sch}
	return &Wrapped{Runtime: rt, Schema: extend(sch)}
}

func extend(original *schema.Schema) *schema.Schema {
	extended := *original
	extended.Types = make(map[string]*schema.Type, len(original.Types))
	for name, t := range original.Types {
		extended.Types[name] = t
	}

	queryType := original.GetQueryType()
	if queryType == nil {
		return &extended
	}
	q := *queryType
	q.Fields = append(append([]*schema.Field(nil), queryType.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[q.Name] = &q
	return &extended
}

type runtime struct {
	base      executor.Runtime
	described *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *schema.Schema:
		if v, ok := schemaField(src, field); ok {
			return v, nil
		}
	case *schema.Type:
		if v, ok := typeField(r.described, src, field, args); ok {
			return v, nil
		}
	case *schema.TypeRef:
		if v, ok := typeRefField(r.described, src, field, args); ok {
			return v, nil
		}
	case *schema.Field:
		if v, ok := fieldField(src, field, args); ok {
			return v, nil
		}
	case *schema.InputValue:
		if v, ok := inputValueField(src, field); ok {
			return v, nil
		}
	case *schema.EnumValue:
		if v, ok := enumValueField(src, field); ok {
			return v, nil
		}
	case *schema.Directive:
		if v, ok := directiveField(src, field, args); ok {
			return v, nil
		}
	}

	if objectType == r.described.QueryType {
		switch field {
		case "__schema":
			return r.described, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.described.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}

	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return r.base.ResolveUnionConcreteValue(ctx, unionTypeName, value)
}

func (r *runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return r.base.ResolveInterfaceConcreteValue(ctx, interfaceTypeName, value)
}

// SerializeLeafValue handles the meta enums and scalars itself so that a base
// runtime without built-in scalars still introspects.
func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation", "String", "Boolean":
		switch v := value.(type) {
		case schema.TypeKind:
			return string(v), nil
		case string, bool, nil:
			return v, nil
		case *string:
			if v == nil {
				return nil, nil
			}
			return *v, nil
		}
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}
