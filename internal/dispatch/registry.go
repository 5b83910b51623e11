package dispatch

import (
	"log"

	"roombot/internal/chat"
	"roombot/internal/rooms"
)

// Sender is the outbound surface features are allowed to touch. The
// chat client satisfies it; features never see the connection itself.
type Sender interface {
	Username() string
	SendRoomMessage(roomID, text string) error
	SendDirectMessage(to, text string) error
	RequestMemberList(roomID string) error
	SendModeration(action chat.ModAction, roomID, userID string) error
}

// Bot is the handle passed into every feature call.
type Bot struct {
	Sender
	Rooms *rooms.Store
}

// Command is a prefix-triggered chat message, parsed once before
// dispatch.
type Command struct {
	Name   string
	Args   []string
	RoomID string
	User   string
	UserID string
}

// Handler is a pluggable feature. Returning true claims the event and
// short-circuits the chain.
type Handler interface {
	Name() string
	HandleCommand(b *Bot, cmd Command, ev chat.Event) bool
}

// SystemListener is optionally implemented by handlers that care about
// non-chat pushes, e.g. member-list arrivals.
type SystemListener interface {
	HandleSystem(b *Bot, ev chat.Event)
}

// Registry holds the ordered handler chain. Registration order is
// significant and fixed at startup.
type Registry struct {
	handlers []Handler
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
	log.Printf("[dispatch] registered handler %q (#%d)", h.Name(), len(r.handlers))
}

// Dispatch walks handlers in registration order until one claims the
// command. A panicking handler is logged and treated as not-claimed so
// one broken feature cannot block the rest.
func (r *Registry) Dispatch(b *Bot, cmd Command, ev chat.Event) bool {
	metricCommands.Inc()
	for _, h := range r.handlers {
		if r.callCommand(h, b, cmd, ev) {
			return true
		}
	}
	return false
}

// System delivers a non-chat push to every handler that listens for
// them, with the same panic isolation as Dispatch.
func (r *Registry) System(b *Bot, ev chat.Event) {
	for _, h := range r.handlers {
		l, ok := h.(SystemListener)
		if !ok {
			continue
		}
		r.callSystem(h.Name(), l, b, ev)
	}
}

func (r *Registry) callCommand(h Handler, b *Bot, cmd Command, ev chat.Event) (claimed bool) {
	defer func() {
		if p := recover(); p != nil {
			metricHandlerPanics.WithLabelValues(h.Name()).Inc()
			log.Printf("[dispatch] handler %q panicked on %q: %v", h.Name(), cmd.Name, p)
			claimed = false
		}
	}()
	return h.HandleCommand(b, cmd, ev)
}

func (r *Registry) callSystem(name string, l SystemListener, b *Bot, ev chat.Event) {
	defer func() {
		if p := recover(); p != nil {
			metricHandlerPanics.WithLabelValues(name).Inc()
			log.Printf("[dispatch] system listener %q panicked on %q: %v", name, ev.Handler, p)
		}
	}()
	l.HandleSystem(b, ev)
}
