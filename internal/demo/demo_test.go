package demo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	for _, name := range []string{"", "default", "async"} {
		app, err := Load(name)
		require.NoError(t, err, name)
		require.NotNil(t, app.Schema.GetQueryType(), name)
	}
	_, err := Load("nope")
	require.Error(t, err)
}

func TestAsyncFieldsAreMarked(t *testing.T) {
	app, err := Async()
	require.NoError(t, err)
	q := app.Schema.GetQueryType()
	require.True(t, q.Field("a").Async)
	require.True(t, q.Field("b").Async)
	require.False(t, q.Field("c").Async)
}
