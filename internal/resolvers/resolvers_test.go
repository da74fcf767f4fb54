package resolvers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/graphqlview/internal/executor"
	language "github.com/hanpama/graphqlview/internal/language"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

const testSDL = `
schema { query: Query }

type Query {
  hello(who: String): String
  user(id: ID!): User
  users: [User!]!
  pet: Pet
  color: Color
  count: Int
  explode: String
}

type User {
  id: ID!
  name: String
  friends: [User!]!
  email: String
}

type Dog { name: String }
type Cat { name: String }
union Pet = Dog | Cat

enum Color { RED GREEN }
`

type user struct {
	ID    string `json:"id"`
	Name  string
	Email string `graphql:"email"`
}

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	return s
}

func execute(t *testing.T, rt *Runtime, s *schema.Schema, query string) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	ex := executor.NewExecutor(rt, s)
	return ex.ExecuteRequest(context.Background(), doc, "", nil, nil)
}

func TestNewRejectsUnknownFields(t *testing.T) {
	s := newTestSchema(t)
	noop := Sync(func(ctx context.Context, source any, args map[string]any) (any, error) { return nil, nil })

	cases := map[string]Map{
		"no dot":        {"Query": noop},
		"unknown type":  {"Nope.hello": noop},
		"unknown field": {"Query.nope": noop},
		"no function":   {"Query.hello": {}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(s, m)
			require.Error(t, err)
		})
	}

	_, err := New(s, nil, WithTypeResolver("User", func(ctx context.Context, v any) (string, error) { return "", nil }))
	require.Error(t, err)
}

func TestNewMarksAsyncFields(t *testing.T) {
	s := newTestSchema(t)
	f := func(ctx context.Context, source any, args map[string]any) (any, error) { return nil, nil }
	_, err := New(s, Map{
		"Query.hello": Sync(f),
		"Query.user":  Async(f),
		"User.friends": Batch(func(ctx context.Context, sources []any, args []map[string]any) ([]any, error) {
			return make([]any, len(sources)), nil
		}),
	})
	require.NoError(t, err)

	require.False(t, s.Types["Query"].Field("hello").Async)
	require.True(t, s.Types["Query"].Field("user").Async)
	require.True(t, s.Types["User"].Field("friends").Async)
}

func TestExecuteWithResolvers(t *testing.T) {
	s := newTestSchema(t)
	users := map[string]*user{
		"1": {ID: "1", Name: "Ada", Email: "ada@example.com"},
		"2": {ID: "2", Name: "Grace"},
	}
	var batchCalls atomic.Int32
	rt, err := New(s, Map{
		"Query.hello": Sync(func(ctx context.Context, source any, args map[string]any) (any, error) {
			who, _ := args["who"].(string)
			if who == "" {
				who = "World"
			}
			return "Hello " + who, nil
		}),
		"Query.user": Async(func(ctx context.Context, source any, args map[string]any) (any, error) {
			return users[args["id"].(string)], nil
		}),
		"Query.users": Sync(func(ctx context.Context, source any, args map[string]any) (any, error) {
			return []any{users["1"], users["2"]}, nil
		}),
		"User.friends": Batch(func(ctx context.Context, sources []any, args []map[string]any) ([]any, error) {
			batchCalls.Add(1)
			out := make([]any, len(sources))
			for i, src := range sources {
				if src.(*user).ID == "1" {
					out[i] = []any{users["2"]}
				} else {
					out[i] = []any{}
				}
			}
			return out, nil
		}),
	})
	require.NoError(t, err)

	res := execute(t, rt, s, `{
  hello
  greet: hello(who: "Go")
  user(id: "1") { id name email }
  users { name friends { name } }
}`)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"hello": "Hello World",
		"greet": "Hello Go",
		"user":  map[string]any{"id": "1", "name": "Ada", "email": "ada@example.com"},
		"users": []any{
			map[string]any{"name": "Ada", "friends": []any{map[string]any{"name": "Grace"}}},
			map[string]any{"name": "Grace", "friends": []any{}},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), batchCalls.Load())
}

func TestAsyncFieldsRunConcurrently(t *testing.T) {
	s, err := schema.BuildFromSDL(`type Query { a: String b: String }`)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func(v string) Resolver {
		return Async(func(ctx context.Context, source any, args map[string]any) (any, error) {
			wg.Done()
			wg.Wait()
			return v, nil
		})
	}
	rt, err := New(s, Map{"Query.a": rendezvous("x"), "Query.b": rendezvous("y")})
	require.NoError(t, err)

	res := execute(t, rt, s, `{ a b }`)
	require.Empty(t, res.Errors)
	if diff := cmp.Diff(map[string]any{"a": "x", "b": "y"}, res.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverErrorsAndPanics(t *testing.T) {
	s := newTestSchema(t)
	rt, err := New(s, Map{
		"Query.hello": Sync(func(ctx context.Context, source any, args map[string]any) (any, error) {
			return nil, errors.New("no greeting")
		}),
		"Query.explode": Async(func(ctx context.Context, source any, args map[string]any) (any, error) {
			panic("boom")
		}),
		"Query.users": Sync(func(ctx context.Context, source any, args map[string]any) (any, error) {
			return []any{&user{ID: "1"}}, nil
		}),
		"User.friends": Batch(func(ctx context.Context, sources []any, args []map[string]any) ([]any, error) {
			return nil, nil
		}),
	})
	require.NoError(t, err)

	res := execute(t, rt, s, `{ hello explode users { friends { id } } }`)
	msgs := map[string]string{}
	for _, e := range res.Errors {
		msgs[e.Message] = pathString(e.Path)
	}
	want := map[string]string{
		"no greeting": "hello",
		"boom":        "explode",
		"batch resolver returned 0 values for 1 sources": "users.0.friends",
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	// friends is non-null all the way up, so users is written as null.
	require.Nil(t, res.Data.(map[string]any)["users"])
}

func TestResolveType(t *testing.T) {
	s := newTestSchema(t)
	rt, err := New(s, nil)
	require.NoError(t, err)
	ctx := context.Background()

	type Dog struct{ Name string }

	name, err := rt.ResolveType(ctx, "Pet", map[string]any{"__typename": "Cat"})
	require.NoError(t, err)
	require.Equal(t, "Cat", name)

	name, err = rt.ResolveType(ctx, "Pet", &Dog{Name: "Rex"})
	require.NoError(t, err)
	require.Equal(t, "Dog", name)

	_, err = rt.ResolveType(ctx, "Pet", 42)
	require.Error(t, err)

	rt, err = New(s, nil, WithTypeResolver("Pet", func(ctx context.Context, v any) (string, error) { return "Cat", nil }))
	require.NoError(t, err)
	name, err = rt.ResolveType(ctx, "Pet", &Dog{})
	require.NoError(t, err)
	require.Equal(t, "Cat", name)
}

func TestSerializeLeafValue(t *testing.T) {
	s := newTestSchema(t)
	rt, err := New(s, nil, WithScalar("Upper", func(v any) (any, error) { return "UP", nil }))
	require.NoError(t, err)
	ctx := context.Background()

	cases := []struct {
		typ     string
		in      any
		want    any
		wantErr bool
	}{
		{typ: "String", in: "s", want: "s"},
		{typ: "String", in: 12, want: "12"},
		{typ: "String", in: true, want: "true"},
		{typ: "ID", in: int64(7), want: "7"},
		{typ: "Int", in: int64(3), want: 3},
		{typ: "Int", in: 2.0, want: 2},
		{typ: "Int", in: 2.5, wantErr: true},
		{typ: "Int", in: int64(1) << 40, wantErr: true},
		{typ: "Float", in: 1, want: 1.0},
		{typ: "Float", in: float32(1.5), want: 1.5},
		{typ: "Boolean", in: true, want: true},
		{typ: "Boolean", in: 0, want: false},
		{typ: "Color", in: "RED", want: "RED"},
		{typ: "Color", in: "BLUE", wantErr: true},
		{typ: "Upper", in: "x", want: "UP"},
		{typ: "Bytes", in: []byte{0x01, 0x02, 0xFF}, want: "AQL/"},
		{typ: "String", in: nil, want: nil},
	}
	for _, c := range cases {
		got, err := rt.SerializeLeafValue(ctx, c.typ, c.in)
		if c.wantErr {
			require.Error(t, err, "%s %v", c.typ, c.in)
			continue
		}
		require.NoError(t, err, "%s %v", c.typ, c.in)
		require.Equal(t, c.want, got, "%s %v", c.typ, c.in)
	}
}

func TestProperty(t *testing.T) {
	type Inner struct{ Value int }
	type outer struct {
		Inner
		Tagged  string `json:"renamed"`
		Skipped string `json:"-"`
		Plain   string
	}
	src := &outer{Inner: Inner{Value: 1}, Tagged: "t", Skipped: "s", Plain: "p"}

	cases := []struct {
		source any
		name   string
		want   any
	}{
		{source: map[string]any{"a": 1}, name: "a", want: 1},
		{source: map[string]string{"a": "b"}, name: "a", want: "b"},
		{source: src, name: "renamed", want: "t"},
		{source: src, name: "plain", want: "p"},
		{source: src, name: "value", want: 1},
		{source: src, name: "missing", want: nil},
		{source: (*outer)(nil), name: "plain", want: nil},
		{source: nil, name: "x", want: nil},
		{source: 5, name: "x", want: nil},
	}
	for _, c := range cases {
		got, err := Property(c.source, c.name)
		require.NoError(t, err)
		require.Equal(t, c.want, got, "%T.%s", c.source, c.name)
	}
}

func pathString(p executor.Path) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = fmt.Sprint(seg)
	}
	return strings.Join(parts, ".")
}
