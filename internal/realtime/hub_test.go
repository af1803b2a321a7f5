package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func mustEvent(t *testing.T, table Table, typ EventType, sessionID string, newRow, oldRow any) Event {
	t.Helper()
	e, err := NewEvent(table, typ, sessionID, newRow, oldRow)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return e
}

func receive(t *testing.T, s Stream) Event {
	t.Helper()
	select {
	case e, ok := <-s.C():
		if !ok {
			t.Fatal("stream closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestSubscribeClose(t *testing.T) {
	hub := NewHub(slog.Default())

	s1 := hub.Subscribe("s1")
	s2 := hub.Subscribe("s1")
	hub.Subscribe("s2")

	if got := hub.SubscriberCount("s1"); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	s1.Close()
	// Should not panic
	s1.Close()

	if got := hub.SubscriberCount("s1"); got != 1 {
		t.Fatalf("expected 1 subscriber after close, got %d", got)
	}
	if _, ok := <-s1.C(); ok {
		t.Error("expected closed channel")
	}
	s2.Close()
}

func TestPublishScopedToSession(t *testing.T) {
	hub := NewHub(slog.Default())
	mine := hub.Subscribe("s1")
	other := hub.Subscribe("s2")
	defer mine.Close()
	defer other.Close()

	hub.Publish(mustEvent(t, TableItems, Insert, "s1", row{ID: "i1", Name: "Pizza"}, nil))

	e := receive(t, mine)
	if e.Table != TableItems || e.Type != Insert {
		t.Errorf("unexpected event %s %s", e.Table, e.Type)
	}
	var got row
	if err := e.DecodeNew(&got); err != nil {
		t.Fatalf("DecodeNew: %v", err)
	}
	if got.Name != "Pizza" {
		t.Errorf("expected Pizza, got %s", got.Name)
	}
	if err := e.DecodeOld(&got); err == nil {
		t.Error("expected error decoding missing old row")
	}

	select {
	case e := <-other.C():
		t.Errorf("other session received %+v", e)
	default:
	}
}

func TestPublishUnscoped(t *testing.T) {
	hub := NewHub(slog.Default())
	a := hub.Subscribe("s1")
	b := hub.Subscribe("s2")
	defer a.Close()
	defer b.Close()

	hub.Publish(mustEvent(t, TableAssignments, Delete, "", nil, row{ID: "a1"}))

	receive(t, a)
	receive(t, b)
}

func TestPublishFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	slow := hub.Subscribe("s1")
	defer slow.Close()

	for range sendBufferSize {
		hub.Publish(Event{Table: TableItems, Type: Update, SessionID: "s1"})
	}

	fast := hub.Subscribe("s1")
	defer fast.Close()

	// This should close the slow subscriber, not block
	hub.Publish(Event{Table: TableSessions, Type: Update, SessionID: "s1"})

	if got := hub.SubscriberCount("s1"); got != 1 {
		t.Fatalf("expected 1 subscriber after overflow, got %d", got)
	}
	if e := receive(t, fast); e.Table != TableSessions {
		t.Errorf("expected sessions event, got %s", e.Table)
	}

	count := 0
	for e := range slow.C() {
		if e.Table == TableSessions {
			t.Error("expected the overflow event to be withheld")
		}
		count++
	}
	if count != sendBufferSize {
		t.Errorf("expected %d buffered events before close, got %d", sendBufferSize, count)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe("s1")
			hub.Publish(Event{Table: TableItems, Type: Insert, SessionID: "s1"})
			sub.Close()
		}()
	}
	wg.Wait()

	if got := hub.SubscriberCount("s1"); got != 0 {
		t.Errorf("expected 0 subscribers after concurrent test, got %d", got)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := NewHub(slog.Default())
	mux := http.NewServeMux()
	mux.Handle("GET /ws/{sessionID}", HandleWebSocket(hub, func(ctx context.Context, id string) error {
		if id != "s1" {
			return context.Canceled
		}
		return nil
	}, slog.Default()))
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, server.URL, "s1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Wait for the server side to subscribe.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount("s1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("server never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(mustEvent(t, TableSessions, Update, "s1", row{ID: "s1", Name: "closed"}, nil))

	e := receive(t, conn)
	if e.Table != TableSessions || e.Type != Update || e.SessionID != "s1" {
		t.Errorf("unexpected event %+v", e)
	}

	conn.Close()
	for range conn.C() {
	}

	if _, err := Dial(ctx, server.URL, "missing"); err == nil {
		t.Error("expected dial to an unknown session to fail")
	}
}
