package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type ping struct{ N int }
type pong struct{ N int }

func TestDispatchByType(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e ping) { got = append(got, "ping-a") })
	On(b, func(_ context.Context, e ping) { got = append(got, "ping-b") })
	On(b, func(_ context.Context, e pong) { got = append(got, "pong") })

	Emit(context.Background(), b, ping{N: 1})
	Emit(context.Background(), b, pong{N: 2})

	want := []string{"ping-a", "ping-b", "pong"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	b := New()
	var got []int
	handler := func(tag int) Handler[ping] {
		return func(_ context.Context, e ping) { got = append(got, tag*10+e.N) }
	}
	un1 := On(b, handler(1))
	On(b, handler(2))

	un1()
	un1()
	Emit(context.Background(), b, ping{N: 3})

	if diff := cmp.Diff([]int{23}, got); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	Use(nil)
	Subscribe(func(context.Context, ping) { t.Fatal("subscribed without a bus") })
	Publish(context.Background(), ping{})

	Use(New())
	var n int
	unsubscribe := Subscribe(func(_ context.Context, e ping) { n += e.N })
	Publish(context.Background(), ping{N: 2})
	unsubscribe()
	Publish(context.Background(), ping{N: 5})
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestNilBusDrops(t *testing.T) {
	Emit[ping](context.Background(), nil, ping{})
}
