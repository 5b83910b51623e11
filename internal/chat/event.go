package chat

import (
	"github.com/tidwall/gjson"
)

// Inbound frame discriminators the core understands. Anything else still
// reaches system listeners untouched.
const (
	HandlerOccupants   = "activeoccupants"
	HandlerUserJoin    = "userjoin"
	HandlerUserLeave   = "userleave"
	HandlerRoomMessage = "chatroommessage"
	HandlerPrivateMsg  = "privatemessage"
	HandlerRoomRename  = "roomrename"
)

// Alias priority for fields the remote service spells inconsistently
// across frame kinds. First non-empty wins.
var (
	actorNameAliases = []string{"username", "from", "sender", "to"}
	actorIDAliases   = []string{"userid", "userId", "id", "user_id", "from_id"}
)

// Member is one entry of a member-list snapshot.
type Member struct {
	Username string
	UserID   string
}

// Event is one inbound frame with cross-protocol aliases resolved.
// Raw keeps the full frame for listeners that need fields the core
// does not normalize.
type Event struct {
	Handler  string
	RoomID   string
	RoomName string
	Username string
	UserID   string
	Text     string
	Users    []Member
	Raw      gjson.Result
}

// ParseEvent normalizes a raw frame. It never fails: absent fields stay
// empty and the caller decides whether the branch it takes needs them.
func ParseEvent(raw []byte) Event {
	r := gjson.ParseBytes(raw)
	ev := Event{
		Handler:  r.Get("handler").String(),
		RoomID:   r.Get("roomid").String(),
		RoomName: r.Get("name").String(),
		Text:     r.Get("text").String(),
		Raw:      r,
	}
	ev.Username = firstNonEmpty(r, actorNameAliases)
	ev.UserID = firstNonEmpty(r, actorIDAliases)

	if users := r.Get("users"); users.IsArray() {
		users.ForEach(func(_, u gjson.Result) bool {
			m := Member{
				Username: u.Get("username").String(),
				UserID:   firstNonEmpty(u, actorIDAliases),
			}
			if m.Username != "" {
				ev.Users = append(ev.Users, m)
			}
			return true
		})
	}
	return ev
}

// IsChat reports whether the event carries a chat message that should be
// dispatched to feature handlers.
func (e Event) IsChat() bool {
	return e.Handler == HandlerRoomMessage || e.Handler == HandlerPrivateMsg
}

// IsDirect reports whether the event is a direct message with no room.
func (e Event) IsDirect() bool {
	return e.Handler == HandlerPrivateMsg
}

func firstNonEmpty(r gjson.Result, aliases []string) string {
	for _, a := range aliases {
		if v := r.Get(a); v.Exists() {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}
