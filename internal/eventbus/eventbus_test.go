package eventbus

import (
	"context"
	"testing"
)

type ping struct{ n int }
type pong struct{ n int }

func TestPublishRoutesByType(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings, pongs int
	defer Subscribe(func(_ context.Context, e ping) { pings += e.n })()
	defer Subscribe(func(_ context.Context, e pong) { pongs += e.n })()

	Publish(context.Background(), ping{n: 2})
	Publish(context.Background(), ping{n: 3})
	Publish(context.Background(), pong{n: 7})
	if pings != 5 || pongs != 7 {
		t.Fatalf("got pings=%d pongs=%d, want 5 and 7", pings, pongs)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got int
	unsub := Subscribe(func(_ context.Context, e ping) { got += e.n })
	Publish(context.Background(), ping{n: 1})
	unsub()
	Publish(context.Background(), ping{n: 1})
	if got != 1 {
		t.Fatalf("got %d after unsubscribe, want 1", got)
	}
}

func TestPublishWithoutBusIsNoop(t *testing.T) {
	Use(nil)
	Publish(context.Background(), ping{n: 1})
	Subscribe(func(context.Context, ping) {})()
}
