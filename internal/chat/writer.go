package chat

import (
	"context"
	"encoding/json"
	"time"

	"nhooyr.io/websocket"
)

const writeTimeout = 5 * time.Second

// send serializes and writes one frame. While no connection is open it
// drops the frame and reports ErrNotConnected; callers decide whether
// that matters.
func (c *Client) send(frame map[string]any) error {
	c.mu.Lock()
	ws := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if ws == nil || !open {
		metricSendsDropped.Inc()
		return ErrNotConnected
	}

	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := ws.Write(wctx, websocket.MessageText, b); err != nil {
		metricSendsDropped.Inc()
		return err
	}
	metricSendsOK.Inc()
	return nil
}

// SendRoomMessage posts text into a room.
func (c *Client) SendRoomMessage(roomID, text string) error {
	return c.send(roomMessageFrame(roomID, text))
}

// SendDirectMessage sends a private message to a user by name.
func (c *Client) SendDirectMessage(to, text string) error {
	return c.send(directMessageFrame(to, text))
}

// JoinRoom records the join intent for replay after reconnects, then
// attempts the join on the current connection.
func (c *Client) JoinRoom(name, password string) error {
	c.joinMu.Lock()
	c.joined[name] = password
	c.joinMu.Unlock()
	return c.send(joinRoomFrame(name, password))
}

// ForgetRoom drops a room from the replay set. It does not leave the
// room on the wire; the service has no explicit leave frame.
func (c *Client) ForgetRoom(name string) {
	c.joinMu.Lock()
	delete(c.joined, name)
	c.joinMu.Unlock()
}

// RequestMemberList asks the service for a fresh member snapshot of a room.
func (c *Client) RequestMemberList(roomID string) error {
	return c.send(memberListFrame(roomID))
}

// SendModeration emits a moderation frame against a resolved user id.
func (c *Client) SendModeration(action ModAction, roomID, userID string) error {
	return c.send(moderationFrame(action, roomID, userID))
}
