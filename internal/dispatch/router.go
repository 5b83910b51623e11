package dispatch

import (
	"strings"

	"roombot/internal/chat"
)

// Router is the single consumer of the read stream: every inbound frame
// passes through Route exactly once, in arrival order.
type Router struct {
	bot    *Bot
	reg    *Registry
	prefix string
}

func NewRouter(bot *Bot, reg *Registry, prefix string) *Router {
	return &Router{bot: bot, reg: reg, prefix: prefix}
}

// Route normalizes the frame, applies it to the room store, notifies
// system listeners, then dispatches command-shaped chat messages. It
// must never block on a timer or a remote call.
func (r *Router) Route(raw []byte) {
	ev := chat.ParseEvent(raw)

	// Direct messages bypass room state inside Observe but still reach
	// the dispatcher below.
	r.bot.Rooms.Observe(ev)
	r.reg.System(r.bot, ev)

	if !ev.IsChat() {
		return
	}
	if ev.Username != "" && ev.Username == r.bot.Username() {
		// Our own echoes are state, not commands.
		return
	}
	cmd, ok := ParseCommand(r.prefix, ev)
	if !ok {
		return
	}
	r.reg.Dispatch(r.bot, cmd, ev)
}

// ParseCommand extracts the leading-trigger-character command form from
// a chat message. Parsing happens here once, not per handler.
func ParseCommand(prefix string, ev chat.Event) (Command, bool) {
	text := strings.TrimSpace(ev.Text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{
		Name:   strings.ToLower(fields[0]),
		Args:   fields[1:],
		RoomID: ev.RoomID,
		User:   ev.Username,
		UserID: ev.UserID,
	}, true
}
