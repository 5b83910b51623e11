package features

import (
	"context"
	"log"
	"strings"
	"time"

	"roombot/internal/ai"
	"roombot/internal/chat"
	"roombot/internal/dispatch"
	"roombot/internal/sessions"
)

const aiCompleteTimeout = 30 * time.Second

type aiState struct {
	LastReply time.Time
	InFlight  bool
}

// AIChat answers "!ai <prompt>" with a per-room cooldown so one room
// cannot drown the backend. Completions run in the background and
// report through the writer; the router is never blocked.
type AIChat struct {
	completer ai.Completer
	cooldown  time.Duration
	throttle  *sessions.Manager[aiState]
}

func NewAIChat(completer ai.Completer, cooldown, idle, sweep time.Duration) *AIChat {
	return &AIChat{
		completer: completer,
		cooldown:  cooldown,
		throttle:  sessions.NewManager[aiState]("aichat", idle, sweep, nil),
	}
}

func (a *AIChat) Name() string { return "aichat" }

func (a *AIChat) Stop() { a.throttle.Stop() }

func (a *AIChat) HandleCommand(b *dispatch.Bot, cmd dispatch.Command, ev chat.Event) bool {
	if cmd.Name != "ai" {
		return false
	}
	a.ask(b, cmd.RoomID, cmd.User, strings.Join(cmd.Args, " "))
	return true
}

// HandleSystem catches "@botname <text>" mentions, which never parse as
// commands.
func (a *AIChat) HandleSystem(b *dispatch.Bot, ev chat.Event) {
	if !ev.IsChat() || ev.Username == "" || ev.Username == b.Username() {
		return
	}
	mention := "@" + strings.ToLower(b.Username())
	text := strings.TrimSpace(ev.Text)
	if len(text) <= len(mention) || !strings.HasPrefix(strings.ToLower(text), mention+" ") {
		return
	}
	a.ask(b, ev.RoomID, ev.Username, text[len(mention):])
}

func (a *AIChat) ask(b *dispatch.Bot, roomID, user, prompt string) {
	prompt = strings.TrimSpace(prompt)
	reply := func(text string) {
		if roomID != "" {
			_ = b.SendRoomMessage(roomID, text)
		} else {
			_ = b.SendDirectMessage(user, text)
		}
	}
	if prompt == "" {
		reply("usage: ai <prompt>")
		return
	}

	key := sessions.Key{Room: roomID}
	if roomID == "" {
		key = sessions.Key{Room: "dm", Target: strings.ToLower(user)}
	}
	a.throttle.GetOrCreate(key, func() aiState { return aiState{} })

	allowed := false
	a.throttle.Update(key, func(s *aiState) {
		if s.InFlight || time.Since(s.LastReply) < a.cooldown {
			return
		}
		s.InFlight = true
		allowed = true
	})
	if !allowed {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), aiCompleteTimeout)
		defer cancel()
		text, err := a.completer.Complete(ctx, prompt)
		// The throttle session may have been swept meanwhile; Update
		// returning false is fine, the cooldown just resets with it.
		a.throttle.Update(key, func(s *aiState) {
			s.InFlight = false
			s.LastReply = time.Now()
		})
		if err != nil {
			log.Printf("[aichat] completion failed: %v", err)
			return
		}
		reply(text)
	}()
}
