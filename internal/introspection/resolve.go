package introspection

import (
	"fmt"
	"sort"

	schema "github.com/hanpama/graphqlview/internal/schema"
)

func schemaField(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optional(sch.Description), true
	case "types":
		out := make([]*schema.Type, 0, len(sch.Types))
		for _, t := range sch.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	case "queryType":
		return typeOrNil(sch.GetQueryType()), true
	case "mutationType":
		return typeOrNil(sch.GetMutationType()), true
	case "subscriptionType":
		return typeOrNil(sch.GetSubscriptionType()), true
	case "directives":
		out := make([]*schema.Directive, 0, len(sch.Directives))
		for _, d := range sch.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	}
	return nil, false
}

func typeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL", "specifiedByUrl":
		if t.SpecifiedByURL == nil {
			return nil, true
		}
		return *t.SpecifiedByURL, true
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return t.OneOf, true
	case "ofType":
		return nil, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if f.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, f)
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return namedTypes(sch, t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return namedTypes(sch, t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if ev.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, ev)
		}
		return out, true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return inputValues(t.InputFields, args), true
	}
	return nil, false
}

// Wrapping references (LIST, NON_NULL) answer kind and ofType themselves;
// named references answer as the type they name.
func typeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	if tr.Kind == schema.TypeRefKindNamed {
		def := sch.Types[tr.Named]
		if def == nil {
			return nil, true
		}
		return typeField(sch, def, field, args)
	}
	switch field {
	case "kind":
		return string(tr.Kind), true
	case "ofType":
		return tr.OfType, true
	}
	return nil, true
}

func fieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return inputValues(f.Arguments, args), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func inputValueField(a *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return a.Name, true
	case "description":
		return optional(a.Description), true
	case "type":
		return a.Type, true
	case "defaultValue":
		switch {
		case a.DefaultLiteral != "":
			return a.DefaultLiteral, true
		case a.DefaultValue != nil:
			return fmt.Sprintf("%v", a.DefaultValue), true
		}
		return nil, true
	case "isDeprecated":
		return a.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(a.IsDeprecated, a.DeprecationReason), true
	}
	return nil, false
}

func enumValueField(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optional(ev.Description), true
	case "isDeprecated":
		return ev.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason), true
	}
	return nil, false
}

func directiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return append([]string{}, d.Locations...), true
	case "args":
		return inputValues(d.Arguments, args), true
	}
	return nil, false
}

func namedTypes(sch *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if def := sch.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	return out
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if v.IsDeprecated && !includeDeprecated(args) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// typeOrNil keeps a missing root type from turning into a typed nil.
func typeOrNil(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}
