package features

import (
	"fmt"
	"log"
	"strings"
	"time"

	"roombot/internal/chat"
	"roombot/internal/dispatch"
	"roombot/internal/sessions"
)

var modCommands = map[string]chat.ModAction{
	"kick":    chat.ModKick,
	"ban":     chat.ModBan,
	"mute":    chat.ModMute,
	"promote": chat.ModPromote,
}

// PendingAction is an admin intent issued before the target's numeric
// id is known. It is consumed exactly once when a member-list snapshot
// resolves the name, or expires with a notice.
type PendingAction struct {
	Action   chat.ModAction
	Target   string // cleaned lowercase name
	RoomID   string
	IssuedBy string
}

// Admin implements kick/ban/mute/promote with deferred id resolution.
type Admin struct {
	pending *sessions.Manager[PendingAction]
}

// NewAdmin wires the pending-action store. sender is used by the
// eviction notice; sends while disconnected drop silently.
func NewAdmin(sender dispatch.Sender, idle, sweep time.Duration) *Admin {
	a := &Admin{}
	a.pending = sessions.NewManager("admin", idle, sweep, func(k sessions.Key, p PendingAction) {
		_ = sender.SendRoomMessage(p.RoomID, fmt.Sprintf("could not find %q, %s cancelled", p.Target, p.Action))
	})
	return a
}

func (a *Admin) Name() string { return "admin" }

func (a *Admin) Stop() { a.pending.Stop() }

func (a *Admin) HandleCommand(b *dispatch.Bot, cmd dispatch.Command, ev chat.Event) bool {
	action, ok := modCommands[cmd.Name]
	if !ok {
		return false
	}
	if cmd.RoomID == "" {
		// Moderation only makes sense inside a room.
		return true
	}
	if len(cmd.Args) == 0 {
		_ = b.SendRoomMessage(cmd.RoomID, "usage: "+cmd.Name+" <name>")
		return true
	}
	target := cleanTarget(cmd.Args[0])
	if target == "" {
		_ = b.SendRoomMessage(cmd.RoomID, "usage: "+cmd.Name+" <name>")
		return true
	}

	// Resolve immediately when the roster already knows the id.
	if room, ok := b.Rooms.ByID(cmd.RoomID); ok {
		if id, ok := room.MemberID(target); ok {
			a.apply(b, action, cmd.RoomID, target, id)
			return true
		}
	}

	key := sessions.Key{Room: cmd.RoomID, Target: target}
	a.pending.GetOrCreate(key, func() PendingAction {
		return PendingAction{Action: action, Target: target, RoomID: cmd.RoomID, IssuedBy: cmd.User}
	})
	if err := b.RequestMemberList(cmd.RoomID); err != nil {
		log.Printf("[admin] member list request failed: %v", err)
	}
	return true
}

// HandleSystem resolves pending actions against member-list snapshots.
func (a *Admin) HandleSystem(b *dispatch.Bot, ev chat.Event) {
	if ev.Handler != chat.HandlerOccupants || ev.RoomID == "" || len(ev.Users) == 0 {
		return
	}
	ids := make(map[string]string, len(ev.Users))
	for _, u := range ev.Users {
		if u.UserID != "" {
			ids[strings.ToLower(u.Username)] = u.UserID
		}
	}
	a.pending.Range(func(k sessions.Key, p PendingAction) bool {
		if p.RoomID != ev.RoomID {
			return true
		}
		id, ok := ids[p.Target]
		if !ok {
			return true
		}
		// Remove first so a concurrent snapshot cannot double-fire.
		if _, removed := a.pending.Remove(k); removed {
			a.apply(b, p.Action, p.RoomID, p.Target, id)
		}
		return true
	})
}

func (a *Admin) apply(b *dispatch.Bot, action chat.ModAction, roomID, target, userID string) {
	if err := b.SendModeration(action, roomID, userID); err != nil {
		log.Printf("[admin] %s %s in %s failed: %v", action, target, roomID, err)
		return
	}
	log.Printf("[admin] %s applied to %s (id=%s) in room %s", action, target, userID, roomID)
}

// cleanTarget normalizes a user-supplied name: mentions lose their "@",
// matching is case-insensitive.
func cleanTarget(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// PendingCount is exposed for tests and the health snapshot.
func (a *Admin) PendingCount() int { return a.pending.Len() }
