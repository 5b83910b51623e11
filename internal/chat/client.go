package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

// State of the logical connection. Exactly one logical connection exists;
// the Client owns it exclusively.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

var (
	// ErrConnectInProgress is returned when Connect is called while another
	// attempt holds the connecting flag. Not an error condition, just a no-op.
	ErrConnectInProgress = errors.New("connect already in progress")
	// ErrNotConnected is returned by send helpers while no connection is
	// open. Callers may ignore it; delivery is at-least-once at best.
	ErrNotConnected = errors.New("not connected")
)

type Options struct {
	URL      string
	Username string
	Password string

	// Delay before reconnecting after a normal close. The remote service
	// closes normally when another session logs in with the same account,
	// so this is longer than the plain error delay.
	NormalCloseDelay time.Duration
	ErrorCloseDelay  time.Duration
	DialTimeout      time.Duration

	// OnFrame receives every inbound frame, sequentially, in arrival order.
	OnFrame func(raw []byte)
}

// Client maintains the single persistent connection to the chat service:
// handshake, read loop, reconnect with backoff, and serialized writes.
type Client struct {
	opts    Options
	running atomic.Bool

	mu         sync.Mutex // guards conn, state, connecting
	conn       *websocket.Conn
	state      State
	connecting bool

	sendMu sync.Mutex // single-writer discipline on the wire

	joinMu sync.Mutex
	joined map[string]string // room name -> password, replayed after reconnect
}

func New(opts Options) *Client {
	if opts.NormalCloseDelay <= 0 {
		opts.NormalCloseDelay = 10 * time.Second
	}
	if opts.ErrorCloseDelay <= 0 {
		opts.ErrorCloseDelay = 5 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	c := &Client{opts: opts, joined: make(map[string]string)}
	c.running.Store(true)
	return c
}

func (c *Client) Username() string { return c.opts.Username }

// SetOnFrame wires the inbound frame consumer. Call before Connect;
// the router needs the client first, so this breaks the wiring cycle.
func (c *Client) SetOnFrame(fn func(raw []byte)) { c.opts.OnFrame = fn }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the service unless an attempt is already in flight. On
// success it sends the login frame first, replays join intents for all
// active rooms, and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	if !c.running.Load() {
		return errors.New("client shut down")
	}
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		log.Printf("[chat] connect skipped: attempt already in progress")
		return ErrConnectInProgress
	}
	c.connecting = true
	c.state = StateConnecting
	if c.conn != nil {
		// Double-close is harmless; the stale read loop sees a stale
		// handle and does not schedule its own reconnect.
		_ = c.conn.Close(websocket.StatusNormalClosure, "replaced")
		c.conn = nil
	}
	c.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	start := time.Now()
	log.Printf("[chat] connecting to %s", c.opts.URL)
	ws, _, err := websocket.Dial(dctx, c.opts.URL, nil)
	if err != nil {
		log.Printf("[chat] connect error: %v", err)
		c.mu.Lock()
		c.connecting = false
		c.state = StateDisconnected
		c.mu.Unlock()
		c.scheduleReconnect(c.opts.ErrorCloseDelay)
		return err
	}
	log.Printf("[chat] connected in %dms", time.Since(start).Milliseconds())
	metricConnectMS.Observe(float64(time.Since(start).Milliseconds()))
	metricConnects.Inc()

	c.mu.Lock()
	c.conn = ws
	c.state = StateOpen
	c.connecting = false
	c.mu.Unlock()

	// Login before anything else, then replay joins: the service keeps no
	// room membership across connections.
	if err := c.send(loginFrame(c.opts.Username, c.opts.Password)); err != nil {
		log.Printf("[chat] login send failed: %v", err)
	}
	for name, pw := range c.joinedRooms() {
		if err := c.send(joinRoomFrame(name, pw)); err != nil {
			log.Printf("[chat] join replay failed for %q: %v", name, err)
		}
	}

	go c.readLoop(ws)
	return nil
}

// Shutdown stops the client permanently. In-flight reads fail naturally;
// no further reconnects are scheduled.
func (c *Client) Shutdown() {
	c.running.Store(false)
	c.mu.Lock()
	c.state = StateClosing
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "shutdown")
		c.conn = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()
	log.Printf("[chat] shut down")
}

// readLoop is the single consumer of the wire; frames reach OnFrame in
// arrival order.
func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.Read(context.Background())
		if err != nil {
			c.handleClose(ws, err)
			return
		}
		metricFramesIn.Inc()
		if c.opts.OnFrame != nil {
			c.opts.OnFrame(data)
		}
	}
}

func (c *Client) handleClose(ws *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == ws
	if current {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	if !current {
		// Connect nils the handle before replacing it, so anything else
		// here is a stale loop; the replacement owns reconnect duty.
		return
	}
	if !c.running.Load() {
		return
	}

	delay := c.opts.ErrorCloseDelay
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure {
		// Likely a competing session; back off longer before fighting it.
		delay = c.opts.NormalCloseDelay
	}
	log.Printf("[chat] connection closed (status=%d err=%v), reconnecting in %s", status, err, delay)
	c.scheduleReconnect(delay)
}

func (c *Client) scheduleReconnect(d time.Duration) {
	metricReconnects.Inc()
	time.AfterFunc(d, func() {
		if !c.running.Load() {
			return
		}
		if err := c.Connect(context.Background()); err != nil && !errors.Is(err, ErrConnectInProgress) {
			// Connect schedules the next attempt itself on dial failure.
			log.Printf("[chat] reconnect attempt failed: %v", err)
		}
	})
}

func (c *Client) joinedRooms() map[string]string {
	c.joinMu.Lock()
	defer c.joinMu.Unlock()
	out := make(map[string]string, len(c.joined))
	for k, v := range c.joined {
		out[k] = v
	}
	return out
}
