package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/hanpama/graphqlview/internal/language"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

// coerceVariableValues checks the provided variables against the operation's
// definitions. Variables the operation does not declare are dropped.
func coerceVariableValues(operation *language.OperationDefinition, provided map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, typ := def.Variable, def.Type
		val, ok := lookupVariable(provided, name)
		switch {
		case ok:
		case def.DefaultValue != nil:
			val = literal(def.DefaultValue, nil)
		case typ.NonNull:
			return nil, fmt.Errorf("Variable \"$%s\" of required type \"%s\" was not provided.", name, typ.String())
		default:
			continue
		}
		if val == nil && typ.NonNull {
			return nil, fmt.Errorf("Variable \"$%s\" of non-null type \"%s\" must not be null.", name, typ.String())
		}
		cv, err := coerceValue(val, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("Variable \"$%s\" got invalid value %s; %v", name, jsonString(val), err)
		}
		out[name] = cv
	}
	return out, nil
}

// coerceArgumentValues builds the argument map of one field. It reports
// false after recording an error when an argument is unusable, in which case
// the field resolves to null without calling the runtime.
func coerceArgumentValues(
	fieldDef *schema.Field,
	arguments language.ArgumentList,
	variables map[string]any,
	state *executionState,
	fields []*language.Field,
	path Path,
) (map[string]any, bool) {
	out := make(map[string]any, len(fieldDef.Arguments))
	for _, arg := range arguments {
		def := fieldDef.Argument(arg.Name)
		if def == nil {
			continue
		}
		// An unset variable behaves as if the argument was omitted.
		if arg.Value != nil && arg.Value.Kind == language.Variable {
			if _, ok := lookupVariable(variables, arg.Value.Raw); !ok {
				continue
			}
		}
		cv, err := coerceValue(literal(arg.Value, variables), def.Type)
		if err != nil {
			state.addError(fmt.Sprintf("Argument '%s' has invalid value: %v", arg.Name, err), fields, path)
			return nil, false
		}
		out[arg.Name] = cv
	}
	for _, def := range fieldDef.Arguments {
		if _, ok := out[def.Name]; ok {
			continue
		}
		switch {
		case def.DefaultValue != nil:
			out[def.Name] = def.DefaultValue
		case schema.IsNonNull(def.Type):
			state.addError(fmt.Sprintf("Argument '%s' of required type '%s' was not provided.", def.Name, def.Type), fields, path)
			return nil, false
		}
	}
	return out, true
}

func lookupVariable(variables map[string]any, name string) (any, bool) {
	if v, ok := variables[name]; ok {
		return v, true
	}
	v, ok := variables[strings.TrimPrefix(name, "$")]
	return v, ok
}

// literal converts an AST value into its Go form. Variables are read from
// vars, which may be nil for constant contexts such as default values.
func literal(value *language.Value, vars map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		v, _ := lookupVariable(vars, value.Raw)
		return v
	case language.IntValue:
		n, err := strconv.Atoi(value.Raw)
		if err != nil {
			f, _ := strconv.ParseFloat(value.Raw, 64)
			return f
		}
		return n
	case language.FloatValue:
		f, _ := strconv.ParseFloat(value.Raw, 64)
		return f
	case language.BooleanValue:
		return value.Raw == "true"
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.ListValue:
		items := make([]any, len(value.Children))
		for i, c := range value.Children {
			items[i] = literal(c.Value, vars)
		}
		return items
	case language.ObjectValue:
		obj := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			obj[c.Name] = literal(c.Value, vars)
		}
		return obj
	}
	return nil
}

// builtinInputs coerce input values of the specified scalars. Other named
// types pass through unchanged.
var builtinInputs = map[string]func(any) (any, error){
	"Int":     inputInt,
	"Float":   inputFloat,
	"String":  inputString,
	"Boolean": inputBoolean,
	"ID":      inputID,
}

func coerceValue(value any, t *schema.TypeRef) (any, error) {
	if schema.IsNonNull(t) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(value, schema.Unwrap(t))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(t) {
		item := schema.Unwrap(t)
		items, ok := value.([]any)
		if !ok {
			// A single value is accepted where a list is expected.
			v, err := coerceValue(value, item)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		}
		out := make([]any, len(items))
		for i, v := range items {
			cv, err := coerceValue(v, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	if f, ok := builtinInputs[schema.GetNamedType(t)]; ok {
		return f(value)
	}
	return value, nil
}

func inputInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case float32:
		return inputInt(float64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return inputInt(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func inputFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func inputString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return fmt.Sprint(value), nil
}

func inputBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func inputID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return fmt.Sprint(value), nil
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
