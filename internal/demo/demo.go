// Package demo holds the reference schemas served by the binary and exercised
// by the handler tests.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	reqctx "github.com/hanpama/graphqlview/internal/reqctx"
	resolvers "github.com/hanpama/graphqlview/internal/resolvers"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

// DefaultSDL is the schema of the default example.
const DefaultSDL = `schema {
  query: QueryRoot
  mutation: MutationRoot
}

type QueryRoot {
  thrower: String
  request: String!
  context: Context
  test(who: String): String
}

type Context {
  session: String
  request: String!
}

type MutationRoot {
  writeTest: QueryRoot
}
`

// AsyncSDL is the schema of the async example.
const AsyncSDL = `schema {
  query: AsyncQueryType
}

type AsyncQueryType {
  a: String
  b: String
  c: String
}
`

// App is a schema bound to its resolvers.
type App struct {
	Schema  *schema.Schema
	Runtime *resolvers.Runtime
}

// Load returns the example named "default" or "async".
func Load(name string) (*App, error) {
	switch name {
	case "", "default":
		return Default()
	case "async":
		return Async()
	}
	return nil, errors.Errorf("unknown schema %q", name)
}

// Default returns the QueryRoot / MutationRoot example.
func Default() (*App, error) {
	return build("default.graphql", DefaultSDL, resolvers.Map{
		"QueryRoot.thrower": resolvers.Sync(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return nil, errors.New("Throws!")
		}),
		"QueryRoot.request": resolvers.Sync(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			r := reqctx.Request(ctx)
			if r == nil {
				return nil, nil
			}
			return r.URL.Query().Get("q"), nil
		}),
		"QueryRoot.context": resolvers.Sync(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			out := map[string]any{"request": describeRequest(ctx)}
			if m, ok := reqctx.Value(ctx).(map[string]any); ok {
				for k, v := range m {
					if k != "request" {
						out[k] = v
					}
				}
			}
			return out, nil
		}),
		"QueryRoot.test": resolvers.Sync(func(ctx context.Context, _ any, args map[string]any) (any, error) {
			who, _ := args["who"].(string)
			if who == "" {
				who = "World"
			}
			return "Hello " + who, nil
		}),
		"MutationRoot.writeTest": resolvers.Sync(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return map[string]any{}, nil
		}),
	})
}

// Async returns the example mixing async and sync resolvers.
func Async() (*App, error) {
	sleep := func(d time.Duration, v string) resolvers.Resolver {
		return resolvers.Async(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			select {
			case <-time.After(d):
				return v, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
	}
	return build("async.graphql", AsyncSDL, resolvers.Map{
		"AsyncQueryType.a": sleep(time.Millisecond, "hey"),
		"AsyncQueryType.b": sleep(3*time.Millisecond, "hey2"),
		"AsyncQueryType.c": resolvers.Sync(func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return "hey3", nil
		}),
	})
}

func build(name, sdl string, fields resolvers.Map) (*App, error) {
	sch, err := schema.BuildFromSource(name, sdl)
	if err != nil {
		return nil, err
	}
	rt, err := resolvers.New(sch, fields)
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", name)
	}
	return &App{Schema: sch, Runtime: rt}, nil
}

func describeRequest(ctx context.Context) string {
	r := reqctx.Request(ctx)
	if r == nil {
		return "<Request>"
	}
	return fmt.Sprintf("<Request %s %s>", r.Method, r.URL.RequestURI())
}
