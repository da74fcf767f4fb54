package schema

import "github.com/vektah/gqlparser/v2/ast"

// Schema is the executable view of a GraphQL schema. Document keeps the
// gqlparser schema it was built from so requests can be validated against it;
// schemas assembled by hand leave it nil and skip validation.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
	Description      string

	Document *ast.Schema `json:"-"`
}

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// RootType returns the root object type serving the given operation kind
// ("query", "mutation" or "subscription").
func (s *Schema) RootType(operation string) *Type {
	switch operation {
	case "query":
		return s.GetQueryType()
	case "mutation":
		return s.GetMutationType()
	case "subscription":
		return s.GetSubscriptionType()
	}
	return nil
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // OBJECT and INTERFACE
	Interfaces     []string      // OBJECT and INTERFACE
	PossibleTypes  []string      // INTERFACE and UNION
	EnumValues     []*EnumValue  // ENUM
	InputFields    []*InputValue // INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool
}

// Field looks up a field definition by name.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Implements reports whether an object type is a member of the named
// interface or union.
func (s *Schema) Implements(object *Type, abstract string) bool {
	if object.Name == abstract {
		return true
	}
	for _, name := range object.Interfaces {
		if name == abstract {
			return true
		}
	}
	if at := s.Types[abstract]; at != nil {
		for _, name := range at.PossibleTypes {
			if name == object.Name {
				return true
			}
		}
	}
	return false
}

type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef is a possibly wrapped reference to a named type.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // LIST and NON_NULL
	Named  string
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Named != "" {
			return cur.Named
		}
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[String!]!".
func (t *TypeRef) String() string {
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	}
	return t.Named
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name        string
	Description string
	Type        *TypeRef
	// DefaultValue is the coerced Go value; DefaultLiteral its GraphQL
	// source form as reported by introspection.
	DefaultValue      any
	DefaultLiteral    string
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func IsNonNull(t *TypeRef) bool      { return t != nil && t.IsNonNull() }
func IsList(t *TypeRef) bool         { return t != nil && t.IsList() }
func Unwrap(t *TypeRef) *TypeRef     { return t.Unwrap() }
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
