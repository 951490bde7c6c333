package hub

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type fakeConn struct {
	id   string
	fail bool

	mu       sync.Mutex
	received [][]byte
	closed   int
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrSlowConsumer
	}
	f.received = append(f.received, payload)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	h := New(zerolog.Nop())
	c1, c2 := &fakeConn{id: "c1"}, &fakeConn{id: "c2"}
	h.Register(c1)
	h.Register(c2)

	if n := h.Broadcast([]byte("m")); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if c1.count() != 1 || c2.count() != 1 {
		t.Fatalf("each connection should receive exactly once")
	}

	h.Unregister(c1)
	h.Broadcast([]byte("m2"))
	if c1.count() != 1 || c2.count() != 2 {
		t.Fatalf("only c2 should receive after c1 left: c1=%d c2=%d", c1.count(), c2.count())
	}
}

func TestBroadcastPrunesFailedConnections(t *testing.T) {
	h := New(zerolog.Nop())
	var healthy []*fakeConn
	for i := 0; i < 5; i++ {
		c := &fakeConn{id: fmt.Sprintf("ok%d", i)}
		healthy = append(healthy, c)
		h.Register(c)
	}
	broken := []*fakeConn{{id: "bad1", fail: true}, {id: "bad2", fail: true}}
	for _, c := range broken {
		h.Register(c)
	}

	if n := h.Broadcast([]byte("x")); n != 5 {
		t.Fatalf("expected 5 deliveries, got %d", n)
	}
	if h.Len() != 5 {
		t.Fatalf("expected registry to shrink by 2, got %d", h.Len())
	}
	for _, c := range healthy {
		if c.count() != 1 {
			t.Fatalf("%s missed the broadcast", c.id)
		}
	}
	for _, c := range broken {
		if c.closed != 1 {
			t.Fatalf("%s should be closed once, got %d", c.id, c.closed)
		}
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := New(zerolog.Nop())
	c := &fakeConn{id: "c"}
	h.Register(c)

	if !h.Unregister(c) {
		t.Fatalf("first unregister should report removal")
	}
	if h.Unregister(c) {
		t.Fatalf("second unregister should be a no-op")
	}
	if c.closed != 1 {
		t.Fatalf("expected a single close, got %d", c.closed)
	}
	if h.Broadcast([]byte("x")) != 0 {
		t.Fatalf("empty hub should deliver nothing")
	}
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	h := New(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c := &fakeConn{id: fmt.Sprintf("c%d", i)}
			h.Register(c)
			if i%2 == 0 {
				h.Unregister(c)
			}
		}(i)
		go func() {
			defer wg.Done()
			h.Broadcast([]byte("x"))
		}()
	}
	wg.Wait()

	if h.Len() != 25 {
		t.Fatalf("expected 25 connections, got %d", h.Len())
	}
}

func TestClientSendAfterClose(t *testing.T) {
	c := NewClient("id", "u", nil, ClientOptions{SendBuffer: 1}, zerolog.Nop())
	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.Send([]byte("b")); err != ErrSlowConsumer {
		t.Fatalf("expected slow consumer, got %v", err)
	}
	c.Close()
	c.Close()
	if err := c.Send([]byte("c")); err != ErrClosed {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestClientPingPongAndBroadcast(t *testing.T) {
	h := New(zerolog.Nop())
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient("ws1", "u1", conn, ClientOptions{}, zerolog.Nop())
		h.Register(c)
		go c.WritePump()
		go c.ReadPump(h)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if string(data) != `{"type":"pong"}` {
		t.Fatalf("unexpected reply %s", data)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	h.Broadcast([]byte(`{"id":"m1"}`))
	_, data, err = conn.ReadMessage()
	if err != nil || string(data) != `{"id":"m1"}` {
		t.Fatalf("expected broadcast payload, got %s %v", data, err)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Len() != 0 {
		t.Fatalf("closed connection should leave the registry")
	}
}
