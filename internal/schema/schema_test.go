package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSDL = `
schema { query: QueryRoot mutation: MutationRoot }

"Root of all reads."
type QueryRoot {
  test(who: String = "World"): String
  old: String @deprecated(reason: "use test")
  node: Node
  pets: [Pet!]!
}

type MutationRoot {
  writeTest: QueryRoot
}

interface Node { id: ID! }

type Dog implements Node { id: ID! bark: String }
type Cat implements Node { id: ID! meow: String }

union Pet = Dog | Cat

enum Color { RED GREEN @deprecated }

input Filter { color: Color = RED, limit: Int }
`

func TestBuildFromSDL(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NotNil(t, sch.Document)

	require.Equal(t, "QueryRoot", sch.QueryType)
	require.Equal(t, "MutationRoot", sch.MutationType)
	require.Equal(t, "", sch.SubscriptionType)

	q := sch.GetQueryType()
	require.NotNil(t, q)
	require.Equal(t, "Root of all reads.", q.Description)

	var names []string
	for _, f := range q.Fields {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"test", "old", "node", "pets"}, names); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}

	test := q.Field("test")
	require.NotNil(t, test)
	who := test.Argument("who")
	require.NotNil(t, who)
	require.Equal(t, "World", who.DefaultValue)
	require.Equal(t, `"World"`, who.DefaultLiteral)

	old := q.Field("old")
	require.True(t, old.IsDeprecated)
	require.Equal(t, "use test", old.DeprecationReason)

	require.Equal(t, "[Pet!]!", q.Field("pets").Type.String())
}

func TestBuildFromSDLAbstractTypes(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	node := sch.Types["Node"]
	require.Equal(t, TypeKindInterface, node.Kind)
	if diff := cmp.Diff([]string{"Cat", "Dog"}, node.PossibleTypes); diff != "" {
		t.Errorf("interface possible types (-want +got):\n%s", diff)
	}
	pet := sch.Types["Pet"]
	require.Equal(t, TypeKindUnion, pet.Kind)
	if diff := cmp.Diff([]string{"Dog", "Cat"}, pet.PossibleTypes); diff != "" {
		t.Errorf("union possible types (-want +got):\n%s", diff)
	}

	dog := sch.Types["Dog"]
	require.True(t, sch.Implements(dog, "Node"))
	require.True(t, sch.Implements(dog, "Pet"))
	require.False(t, sch.Implements(dog, "Color"))

	color := sch.Types["Color"]
	require.Len(t, color.EnumValues, 2)
	require.True(t, color.EnumValues[1].IsDeprecated)

	filter := sch.Types["Filter"]
	require.Equal(t, TypeKindInputObject, filter.Kind)
	require.Equal(t, "RED", filter.InputFields[0].DefaultValue)
}

func TestBuildFromSDLIncludesPrelude(t *testing.T) {
	sch, err := BuildFromSDL(`type Query { a: String }`)
	require.NoError(t, err)
	for _, name := range []string{"String", "Int", "Float", "Boolean", "ID", "__Schema", "__Type"} {
		require.Contains(t, sch.Types, name)
	}
	require.Contains(t, sch.Directives, "skip")
	require.Contains(t, sch.Directives, "include")
	require.Nil(t, sch.GetQueryType().Field("__schema"))
}

func TestBuildFromSDLError(t *testing.T) {
	_, err := BuildFromSource("broken.graphql", `type Query { a: Nope }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load schema broken.graphql")
}

func TestRender(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)
	out := Render(sch)
	require.Contains(t, out, "type QueryRoot {")
	require.Contains(t, out, "union Pet = Dog | Cat")
	require.False(t, strings.Contains(out, "type __Schema"), "prelude types must not be printed")

	require.Equal(t, "", Render(NewSchema("")))
}

func TestTypeRefString(t *testing.T) {
	cases := map[string]*TypeRef{
		"String":   NamedType("String"),
		"String!":  NonNullType(NamedType("String")),
		"[Int]":    ListType(NamedType("Int")),
		"[[ID!]!]": ListType(NonNullType(ListType(NonNullType(NamedType("ID"))))),
	}
	for want, ref := range cases {
		if got := ref.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
