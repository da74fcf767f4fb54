package executor

import (
	"context"
)

// Runtime is the host integration surface of the Executor: field resolution,
// batching of async fields, abstract type resolution and leaf serialization.
//
// Contract
//   - Execution is breadth-first. At each depth every sync field is resolved
//     through ResolveSync, then BatchResolveAsync is called once with all async
//     fields found at that depth. The next depth starts after the batch has
//     been completed.
//   - ResolveSync is never called for fields marked schema.Field.Async, and
//     BatchResolveAsync is never called with an empty batch.
//   - Returned errors become located GraphQL errors. A failing Non-Null field
//     nulls its nearest nullable ancestor.
//   - Implementations must be safe for concurrent use: one Runtime serves every
//     operation of a batch request at the same time.
//   - source and args must not be mutated.
//
// Identifiers
//   - objectType is the parent GraphQL type name; for root fields it is the
//     root type name (e.g. "QueryRoot").
//   - source is the parent value; for root fields it is the root value.
//   - args holds argument values already coerced against the schema.
type Runtime interface {
	// ResolveSync resolves a synchronous field and returns the raw value to be
	// completed. Return (nil, nil) for a GraphQL null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves the async fields of one execution depth.
	// It must return exactly one result per task, in task order, and report
	// failures per element instead of failing the batch.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name of a value of the
	// abstract type (interface or union).
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// ResolveUnionConcreteValue unwraps a union envelope value before it is
	// completed.
	ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error)

	// ResolveInterfaceConcreteValue unwraps an interface envelope value before
	// it is completed.
	ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error)

	// SerializeLeafValue serializes a scalar or enum value into a JSON-safe Go
	// value. Enums serialize to their symbolic name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value.
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error is the failure of this element alone.
	Error error
}
