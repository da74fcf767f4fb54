package resolvers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	schema "github.com/hanpama/graphqlview/internal/schema"
)

func serializeBuiltin(typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch typeName {
	case "String":
		return serializeString(value)
	case "ID":
		switch v := value.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return fmt.Sprint(v), nil
		}
		return serializeString(value)
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "Boolean":
		return serializeBoolean(value)
	}
	// Custom scalars without a serializer pass through; bytes are sent as
	// base64 the way encoding/json would.
	if b, ok := value.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	return value, nil
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case json.Number:
		return v.String(), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %v", value)
}

func serializeInt(value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %q", v)
		}
		n = f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", v)
		}
		n = f
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			n = rv.Float()
		default:
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
		}
	}
	if n != math.Trunc(n) {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
	}
	return int(n), nil
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %q", v)
		}
		return f, nil
	case json.Number:
		return v.Float64()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
		}
		return f, nil
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
}

func serializeBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return v != "", nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
}

func serializeEnum(t *schema.Type, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	name, err := serializeString(value)
	if err != nil {
		return nil, fmt.Errorf("Enum %q cannot represent value: %v", t.Name, value)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("Enum %q cannot represent value: %v", t.Name, value)
}
