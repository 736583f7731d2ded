package realtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestDispatcher(t *testing.T, hub *Hub) *Dispatcher {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	d := NewDispatcher(hub, logger, 16)
	t.Cleanup(d.Stop)
	return d
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()
	d := newTestDispatcher(t, hub)

	h1 := &fakeHandle{key: "h1"}
	h2 := &fakeHandle{key: "h2"}
	hub.Add("b1", h1)
	hub.Add("b1", h2)

	d.Broadcast("b1", domain.ColumnDeleted("c1"))

	waitFor(t, func() bool { return len(h1.messages()) == 1 && len(h2.messages()) == 1 })

	var ev domain.Event
	if err := sonic.Unmarshal([]byte(h1.messages()[0]), &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Type != domain.EventColumnDeleted || ev.ColumnID != "c1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestBroadcastPerSubscriberFIFO(t *testing.T) {
	hub := NewHub()
	d := newTestDispatcher(t, hub)

	h := &fakeHandle{key: "h"}
	hub.Add("b1", h)

	const n = 20
	for i := 0; i < n; i++ {
		d.Broadcast("b1", domain.TaskAssigned(fmt.Sprintf("t%02d", i), "u"))
	}

	waitFor(t, func() bool { return len(h.messages()) == n })

	for i, raw := range h.messages() {
		var ev domain.Event
		if err := sonic.Unmarshal([]byte(raw), &ev); err != nil {
			t.Fatalf("unmarshal event %d: %v", i, err)
		}
		if want := fmt.Sprintf("t%02d", i); ev.TaskID != want {
			t.Fatalf("event %d out of order: got %s want %s", i, ev.TaskID, want)
		}
	}
}

func TestBroadcastPrunesFailingSubscriber(t *testing.T) {
	hub := NewHub()
	d := newTestDispatcher(t, hub)

	bad := &fakeHandle{key: "bad", reject: true}
	good := &fakeHandle{key: "good"}
	hub.Add("b1", bad)
	hub.Add("b1", good)

	d.Broadcast("b1", domain.ColumnDeleted("c1"))

	waitFor(t, func() bool { return len(good.messages()) == 1 })
	waitFor(t, func() bool { return bad.isClosed() })

	if got := len(hub.Subscribers("b1")); got != 1 {
		t.Fatalf("expected failing handle pruned, got %d subscribers", got)
	}

	// subsequent broadcasts never reach the pruned handle
	d.Broadcast("b1", domain.ColumnDeleted("c2"))
	waitFor(t, func() bool { return len(good.messages()) == 2 })
	if len(bad.messages()) != 0 {
		t.Fatalf("pruned handle received %d messages", len(bad.messages()))
	}
}

func TestBroadcastScopedToBoard(t *testing.T) {
	hub := NewHub()
	d := newTestDispatcher(t, hub)

	h1 := &fakeHandle{key: "h1"}
	h2 := &fakeHandle{key: "h2"}
	hub.Add("b1", h1)
	hub.Add("b2", h2)

	d.Broadcast("b1", domain.ColumnDeleted("c1"))

	waitFor(t, func() bool { return len(h1.messages()) == 1 })
	if len(h2.messages()) != 0 {
		t.Fatalf("subscriber of another board received %d messages", len(h2.messages()))
	}
}
