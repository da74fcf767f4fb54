package metrics

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	events "github.com/hanpama/graphqlview/internal/events"
)

func TestCollectorsFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)
	defer c.Subscribe()()

	ctx := context.Background()
	r := httptest.NewRequest("GET", "/graphql", nil)

	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	require.Equal(t, 1.0, testutil.ToFloat64(c.InFlight))

	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.GraphQLFinish{Status: 400, Batch: true})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200, Kind: "graphql", Duration: time.Millisecond})

	require.Equal(t, 0.0, testutil.ToFloat64(c.InFlight))
	require.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "200", "graphql")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("query", "200", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("unknown", "400", "true")))
	require.Equal(t, 2, testutil.CollectAndCount(c.OperationDuration))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
