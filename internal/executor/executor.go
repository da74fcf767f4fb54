package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/sync/errgroup"

	language "github.com/hanpama/graphqlview/internal/language"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

type Path []PathElement

type PathElement any

type NodeID uint64

// executionState holds the state of one operation execution.
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	middleware     []Middleware
	asyncTaskGroup []asyncTask
	errors         []GraphQLError
	nextID         uint64
	// prefixes of paths that have been nullified (tombstoned)
	nullifiedPrefix map[string]struct{}
	// response positions whose type is non-null
	nonNull map[string]struct{}
}

// asyncTask represents a pending async field resolution
type asyncTask struct {
	ID           NodeID
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
}

type asyncPending struct{}

type Executor struct {
	runtime    Runtime
	schema     *schema.Schema
	middleware []Middleware
}

func NewExecutor(runtime Runtime, schema *schema.Schema, opts ...Option) *Executor {
	e := &Executor{runtime: runtime, schema: schema}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := SelectOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	coercedVariableValues, err := coerceVariableValues(operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error(), Locations: locationsOf(operation.Position)}}}
	}

	rootType := e.schema.RootType(string(operation.Operation))
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("Schema is not configured for %ss.", operation.Operation)}}}
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		variableValues:  coercedVariableValues,
		context:         ctx,
		middleware:      e.middleware,
		errors:          []GraphQLError{},
		nextID:          1,
		nullifiedPrefix: make(map[string]struct{}),
		nonNull:         make(map[string]struct{}),
	}

	// Root selection set: sync immediate expansion, async queued
	responseRoot := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
	if responseRoot == nil {
		responseRoot = make(map[string]any)
	}

	// Depth-wise batch loop
	for len(state.asyncTaskGroup) > 0 {
		filtered, results := flushAsyncTasks(state)
		for i, r := range results {
			completeAsyncField(state, filtered[i], r, responseRoot)
		}
	}

	return &ExecutionResult{Data: responseRoot, Errors: state.errors}
}

// SelectOperation picks the operation to run from document. An empty name
// selects the only operation of the document.
func SelectOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, errors.New("Must provide an operation.")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, errors.New("Must provide operation name if query contains multiple operations.")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("Unknown operation named \"%s\".", operationName)
}

// executeSelectionSet executes a selection set without flushing
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	resultMap := make(map[string]any)

	for _, group := range collectFields(state, objectType, selectionSet) {
		responseName := group.key
		fields := group.nodes
		fieldPath := appendPath(path, responseName)

		fieldResult := executeFieldGroup(state, objectType, objectValue, fields, fieldPath)

		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if fieldDef == nil {
			continue
		}

		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			// Root level: keep going but write nil
			resultMap[responseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.Field(fieldName)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'.", fieldName, objectType.Name), fields, path)
		return nil
	}

	argumentValues, ok := coerceArgumentValues(fieldDef, field.Arguments, state.variableValues, state, fields, path)
	if !ok {
		return nil
	}

	if !fieldDef.Async {
		resolvedValue := resolveSyncField(state, objectType.Name, fieldName, objectValue, argumentValues, fields, path)
		return completeValue(state, fieldDef.Type, fields, resolvedValue, path)
	}

	id := NodeID(state.nextID)
	state.nextID++
	state.asyncTaskGroup = append(state.asyncTaskGroup, asyncTask{
		ID: id,
		Task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldName,
			Source:     objectValue,
			Args:       argumentValues,
		},
		ResponsePath: path,
		FieldType:    fieldDef.Type,
		Fields:       fields,
	})
	return asyncPending{}
}

// flushAsyncTasks flushes tasks and returns results (filtered by tombstones)
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	filtered := make([]asyncTask, 0, len(state.asyncTaskGroup))
	for _, at := range state.asyncTaskGroup {
		if state.hasNullifiedPrefix(at.ResponsePath) {
			continue
		}
		filtered = append(filtered, at)
	}
	state.asyncTaskGroup = nil
	if len(filtered) == 0 {
		return nil, nil
	}

	if len(state.middleware) == 0 {
		tasks := make([]AsyncResolveTask, len(filtered))
		for i, at := range filtered {
			tasks[i] = at.Task
		}
		return filtered, state.runtime.BatchResolveAsync(state.context, tasks)
	}

	// Middlewares see one field at a time, so each task becomes its own
	// single-element batch. The tasks of a depth still run concurrently.
	results := make([]AsyncResolveResult, len(filtered))
	inner := func(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error) {
		res := state.runtime.BatchResolveAsync(ctx, []AsyncResolveTask{{
			ObjectType: info.ObjectType,
			Field:      info.Field,
			Source:     source,
			Args:       args,
		}})
		if len(res) != 1 {
			return nil, fmt.Errorf("runtime returned %d results for 1 task", len(res))
		}
		return res[0].Value, res[0].Error
	}
	resolve := chain(state.middleware, inner)
	var (
		g        errgroup.Group
		mu       sync.Mutex
		panicked any
	)
	for i, at := range filtered {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					if panicked == nil {
						panicked = rec
					}
					mu.Unlock()
				}
			}()
			info := ResolveInfo{ObjectType: at.Task.ObjectType, Field: at.Task.Field, Path: at.ResponsePath, Async: true}
			v, err := resolve(state.context, info, at.Task.Source, at.Task.Args)
			results[i] = AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	// Re-raised on the calling goroutine so it panics the same way a sync
	// field does and the caller's recover sees it.
	if panicked != nil {
		panic(panicked)
	}
	return filtered, results
}

// completeAsyncField completes a single async result, with non-null propagation and pruning
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, responseRoot map[string]any) {
	path := at.ResponsePath
	if state.hasNullifiedPrefix(path) {
		return
	}

	if res.Error != nil {
		state.addResolverError(res.Error, at.Fields, path)
		if schema.IsNonNull(at.FieldType) {
			top := state.nullTarget(path)
			setValueAtPath(responseRoot, top, nil)
			state.markNullifiedPrefix(top)
			return
		}
		setValueAtPath(responseRoot, path, nil)
		return
	}

	completed := completeValue(state, at.FieldType, at.Fields, res.Value, path)

	if schema.IsNonNull(at.FieldType) && isNullish(completed) {
		top := state.nullTarget(path)
		setValueAtPath(responseRoot, top, nil)
		state.markNullifiedPrefix(top)
		return
	}

	if isNullish(completed) {
		setValueAtPath(responseRoot, path, nil)
	} else {
		setValueAtPath(responseRoot, path, completed)
	}
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if state.nonNull != nil {
			state.nonNull[pathToString(path)] = struct{}{}
		}
		var completed any
		if !isNullish(result) {
			completed = completeValue(state, schema.Unwrap(fieldType), fields, result, path)
		}
		if isNullish(completed) {
			if !state.hasErrorWithin(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s.", pathToString(path)), fields, path)
			}
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}
	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), fields, path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.addResolverError(err, fields, path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, result, path)
	case schema.TypeKindInterface:
		concrete, err := state.runtime.ResolveInterfaceConcreteValue(state.context, namedType, result)
		if err != nil {
			state.addResolverError(err, fields, path)
			return nil
		}
		return completeAbstractValue(state, namedType, fields, concrete, path)
	case schema.TypeKindUnion:
		concrete, err := state.runtime.ResolveUnionConcreteValue(state.context, namedType, result)
		if err != nil {
			state.addResolverError(err, fields, path)
			return nil
		}
		return completeAbstractValue(state, namedType, fields, concrete, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), fields, path)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), fields, path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i))
		if schema.IsNonNull(inner) && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	return executeSelectionSet(state, objectType, mergeSelectionSets(fields), result, path)
}

func completeAbstractValue(state *executionState, abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractTypeName, result)
	if err != nil {
		state.addResolverError(err, fields, path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), fields, path)
		return nil
	}
	if !state.schema.Implements(objectType, abstractTypeName) {
		state.addError(fmt.Sprintf("Runtime Object type %s is not a possible type for %s.", typeName, abstractTypeName), fields, path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func (s *executionState) markNullifiedPrefix(p Path) {
	if key := pathToString(p); key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		if _, ok := s.nullifiedPrefix[pathToString(cur)]; ok {
			return true
		}
	}
	return false
}

// nullTarget returns the position a null at the non-null position p
// propagates to: the nearest nullable ancestor, or the top-level field when
// there is none.
func (s *executionState) nullTarget(p Path) Path {
	for i := len(p) - 1; i > 1; i-- {
		if _, ok := s.nonNull[pathToString(p[:i])]; !ok {
			return p[:i]
		}
	}
	if len(p) == 0 {
		return Path{}
	}
	return p[:1]
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	return schema.BuildTypeRef(t)
}

func locationsOf(pos *language.Position) []Location {
	if pos == nil {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

func fieldLocations(fields []*language.Field) []Location {
	if len(fields) == 0 {
		return nil
	}
	return locationsOf(fields[0].Position)
}

func (s *executionState) addError(message string, fields []*language.Field, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Locations: fieldLocations(fields), Path: path})
}

// addResolverError records err located at the field. Extensions of a
// *gqlerror.Error returned by a resolver are kept.
func (s *executionState) addResolverError(err error, fields []*language.Field, path Path) {
	ge := GraphQLError{Message: err.Error(), Locations: fieldLocations(fields), Path: path}
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		ge.Message = gqlErr.Message
		ge.Extensions = gqlErr.Extensions
	}
	s.errors = append(s.errors, ge)
}

// hasErrorWithin reports whether an error was recorded at path or below it.
func (s *executionState) hasErrorWithin(path Path) bool {
	for _, err := range s.errors {
		if len(err.Path) >= len(path) && reflect.DeepEqual(err.Path[:len(path)], path) {
			return true
		}
	}
	return false
}

func resolveSyncField(state *executionState, objectType string, fieldName string, source any, args map[string]any, fields []*language.Field, path Path) any {
	var (
		value any
		err   error
	)
	if len(state.middleware) == 0 {
		value, err = state.runtime.ResolveSync(state.context, objectType, fieldName, source, args)
	} else {
		inner := func(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error) {
			return state.runtime.ResolveSync(ctx, info.ObjectType, info.Field, source, args)
		}
		info := ResolveInfo{ObjectType: objectType, Field: fieldName, Path: path}
		value, err = chain(state.middleware, inner)(state.context, info, source, args)
	}
	if err != nil {
		state.addResolverError(err, fields, path)
		return nil
	}
	return value
}

// setValueAtPath writes value at path in the response tree.
func setValueAtPath(responseRoot map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	current := any(responseRoot)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[fe] = value
		}
	case int:
		if slice, ok := current.([]any); ok && fe < len(slice) {
			slice[fe] = value
		}
	}
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
