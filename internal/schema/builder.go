package schema

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/graphqlview/internal/language"
)

// BuildFromSDL loads SDL through gqlparser, merging the built-in prelude,
// and converts the result into an executable Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSource("schema.graphql", sdl)
}

// BuildFromSource is BuildFromSDL with a source name used in error messages.
func BuildFromSource(name, sdl string) (*Schema, error) {
	doc, err := language.LoadSchema(name, sdl)
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %s", name)
	}
	return BuildFromAST(doc), nil
}

// BuildFromAST converts a validated gqlparser schema. Meta fields (__schema,
// __type) gqlparser attaches to the query root are left out; they are served
// by the introspection wrapper.
func BuildFromAST(doc *ast.Schema) *Schema {
	s := NewSchema(doc.Description)
	s.Document = doc
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	for _, def := range doc.Types {
		s.AddType(buildType(doc, def))
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirective(dir))
	}
	return s
}

func buildType(doc *ast.Schema, def *ast.Definition) *Type {
	var t *Type
	switch def.Kind {
	case ast.Object:
		t = NewType(def.Name, TypeKindObject, def.Description)
	case ast.Interface:
		t = NewType(def.Name, TypeKindInterface, def.Description)
	case ast.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
	case ast.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
	case ast.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
	default:
		t = NewType(def.Name, TypeKindScalar, def.Description)
	}

	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	switch def.Kind {
	case ast.Object, ast.Interface:
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(fd))
		}
	case ast.InputObject:
		for _, fd := range def.Fields {
			t.AddInputField(buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		}
	case ast.Enum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	}

	if def.Kind == ast.Union {
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	}
	if def.Kind == ast.Interface {
		var names []string
		for _, impl := range doc.PossibleTypes[def.Name] {
			names = append(names, impl.Name)
		}
		sort.Strings(names)
		for _, name := range names {
			t.AddPossibleType(name)
		}
	}

	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			t.SetSpecifiedByURL(arg.Value.Raw)
		}
	}
	if def.Directives.ForName("oneOf") != nil {
		t.SetOneOf(true)
	}
	return t
}

func buildField(fd *ast.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, BuildTypeRef(fd.Type))
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range fd.Arguments {
		f.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return f
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) *InputValue {
	in := NewInputValue(name, description, BuildTypeRef(typ))
	if def != nil {
		if v, err := def.Value(nil); err == nil {
			in.SetDefault(v)
		}
		in.DefaultLiteral = def.String()
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildDirective(dir *ast.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.AddLocation(string(loc))
	}
	for _, arg := range dir.Arguments {
		d.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return d
}

// BuildTypeRef converts a gqlparser type expression.
func BuildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(BuildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return reason, true
}
