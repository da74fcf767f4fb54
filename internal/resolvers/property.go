package resolvers

import (
	"reflect"
	"strings"
	"sync"
)

// Property is the default field resolver. It reads name from a map key, a
// struct field tagged `graphql:"name"` or `json:"name"`, or an exported
// struct field whose name matches case-insensitively. Missing values resolve
// to nil.
func Property(source any, name string) (any, error) {
	switch s := source.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return s[name], nil
	}

	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !e.IsValid() {
			return nil, nil
		}
		return e.Interface(), nil
	case reflect.Struct:
		idx, ok := fieldIndex(v.Type(), name)
		if !ok {
			return nil, nil
		}
		fv, err := v.FieldByIndexErr(idx)
		if err != nil || !fv.CanInterface() {
			return nil, nil
		}
		return fv.Interface(), nil
	}
	return nil, nil
}

type fieldKey struct {
	t    reflect.Type
	name string
}

var fieldIndexCache sync.Map // fieldKey -> []int

func fieldIndex(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{t, name}
	if idx, ok := fieldIndexCache.Load(key); ok {
		return idx.([]int), idx.([]int) != nil
	}
	idx := lookupField(t, name)
	fieldIndexCache.Store(key, idx)
	return idx, idx != nil
}

func lookupField(t reflect.Type, name string) []int {
	var byName []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tagName(f.Tag.Get("graphql")) == name || tagName(f.Tag.Get("json")) == name {
			return f.Index
		}
		if byName == nil && strings.EqualFold(f.Name, name) {
			byName = f.Index
		}
	}
	return byName
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
