package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

type wsServer struct {
	frames chan map[string]any
	conns  chan *websocket.Conn
	srv    *httptest.Server
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		frames: make(chan map[string]any, 64),
		conns:  make(chan *websocket.Conn, 4),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- c
		for {
			_, data, err := c.Read(r.Context())
			if err != nil {
				return
			}
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			s.frames <- m
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) recvFrame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case m := <-s.frames:
		return m
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for frame")
		return nil
	}
}

func (s *wsServer) recvConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for connection")
		return nil
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c := New(Options{
		URL:              url,
		Username:         "bot",
		Password:         "secret",
		NormalCloseDelay: 50 * time.Millisecond,
		ErrorCloseDelay:  50 * time.Millisecond,
		DialTimeout:      2 * time.Second,
	})
	t.Cleanup(c.Shutdown)
	return c
}

func TestConnectSendsLoginFirst(t *testing.T) {
	srv := newWSServer(t)
	c := newTestClient(t, srv.srv.URL)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	f := srv.recvFrame(t)
	if f["handler"] != "login" {
		t.Fatalf("expected login frame first, got %v", f["handler"])
	}
	if f["username"] != "bot" || f["password"] != "secret" {
		t.Fatalf("login frame malformed: %v", f)
	}
	if f["id"] == "" || f["id"] == nil {
		t.Fatalf("login frame missing request id")
	}
	if got := c.State(); got != StateOpen {
		t.Fatalf("expected open state, got %s", got)
	}
}

func TestConnectWhileConnectingIsNoOp(t *testing.T) {
	srv := newWSServer(t)
	c := newTestClient(t, srv.srv.URL)

	c.mu.Lock()
	c.connecting = true
	c.mu.Unlock()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrConnectInProgress) {
		t.Fatalf("expected ErrConnectInProgress, got %v", err)
	}

	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()

	// Exactly one real connect, so exactly one login frame.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	f := srv.recvFrame(t)
	if f["handler"] != "login" {
		t.Fatalf("expected login frame, got %v", f["handler"])
	}
	select {
	case f := <-srv.frames:
		t.Fatalf("unexpected extra frame %v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendDropsWhenDisconnected(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:0")
	if err := c.SendRoomMessage("7", "hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestReconnectReplaysJoins(t *testing.T) {
	srv := newWSServer(t)
	c := newTestClient(t, srv.srv.URL)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := srv.recvConn(t)
	if f := srv.recvFrame(t); f["handler"] != "login" {
		t.Fatalf("expected login, got %v", f["handler"])
	}

	if err := c.JoinRoom("alpha", ""); err != nil {
		t.Fatalf("join alpha: %v", err)
	}
	if err := c.JoinRoom("beta", "pw"); err != nil {
		t.Fatalf("join beta: %v", err)
	}
	srv.recvFrame(t) // join alpha
	srv.recvFrame(t) // join beta

	// Server-side close; a normal status signals session replacement and
	// takes the longer delay, still short in this test.
	_ = conn.Close(websocket.StatusNormalClosure, "replaced")

	// After reopen: login first, then both joins replayed.
	if f := srv.recvFrame(t); f["handler"] != "login" {
		t.Fatalf("expected login after reconnect, got %v", f["handler"])
	}
	joined := map[string]bool{}
	for i := 0; i < 2; i++ {
		f := srv.recvFrame(t)
		if f["handler"] != "joinchatroom" {
			t.Fatalf("expected join replay, got %v", f["handler"])
		}
		joined[f["name"].(string)] = true
	}
	if !joined["alpha"] || !joined["beta"] {
		t.Fatalf("expected joins for alpha and beta, got %v", joined)
	}
}

func TestShutdownStopsReconnect(t *testing.T) {
	srv := newWSServer(t)
	c := newTestClient(t, srv.srv.URL)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	srv.recvConn(t)
	srv.recvFrame(t) // login

	c.Shutdown()

	select {
	case <-srv.conns:
		t.Fatalf("unexpected reconnect after shutdown")
	case <-time.After(200 * time.Millisecond):
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect after shutdown to fail")
	}
}
