// Package executor implements a breadth-first GraphQL executor with explicit
// runtime hooks for synchronous resolution, depth-wise batching of
// asynchronous work, abstract type resolution and leaf serialization.
//
// # Preparation
//
// ExecuteRequest selects the operation (by name, or the only one when no name
// is given), coerces the variables against the operation's definitions and
// picks the root type. Failures at this stage produce a result without data
// whose errors carry no path; HTTP front ends report those as request errors.
//
// # Execution model
//
// Fields are classified by schema.Field.Async:
//   - Sync fields are resolved immediately through Runtime.ResolveSync and
//     their subselections expand in the same depth.
//   - Async fields are queued and resolved together by a single
//     Runtime.BatchResolveAsync call once the depth has been expanded.
//
// For a query with asynchronous depth d, BatchResolveAsync is called exactly d
// times. Completing a batch may enqueue async children, which form the next
// batch.
//
// # Value completion
//
//   - Non-Null: a null result records an error and nulls the nearest
//     nullable ancestor, or the top-level field when every position up to
//     the root is non-null. Queued tasks under a nulled path are dropped.
//   - List: elements complete with index-aware paths.
//   - Leaf: Runtime.SerializeLeafValue produces the JSON value.
//   - Interface and union: the concrete value and type come from the runtime
//     and are checked against the schema.
//
// Fragments with an interface or union type condition apply to every member
// object type.
//
// # Middleware
//
// WithMiddleware wraps every field resolution. Async fields then resolve one
// task per call, concurrently within a depth, so each middleware invocation
// observes a single field. A panic on one of those goroutines is re-raised on
// the goroutine running ExecuteRequest.
//
// # Errors
//
// Resolver errors become GraphQLError values located at the first AST field
// of the group and carry the response path. Execution continues for sibling
// fields, producing partial results.
package executor
