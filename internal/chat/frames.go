package chat

import "github.com/google/uuid"

// ModAction is an outbound moderation verb. The business rules behind
// them live in features; the core only serializes the frame.
type ModAction string

const (
	ModKick    ModAction = "kickuser"
	ModBan     ModAction = "banuser"
	ModMute    ModAction = "muteuser"
	ModPromote ModAction = "changerole"
)

// Outbound frames are flat JSON objects: a generated request id, a
// handler discriminator, and target fields.

func loginFrame(username, password string) map[string]any {
	return map[string]any{
		"id":       uuid.New().String(),
		"handler":  "login",
		"username": username,
		"password": password,
	}
}

func joinRoomFrame(name, password string) map[string]any {
	f := map[string]any{
		"id":      uuid.New().String(),
		"handler": "joinchatroom",
		"name":    name,
	}
	if password != "" {
		f["password"] = password
	}
	return f
}

func roomMessageFrame(roomID, text string) map[string]any {
	return map[string]any{
		"id":      uuid.New().String(),
		"handler": "chatroommessage",
		"roomid":  roomID,
		"text":    text,
	}
}

func directMessageFrame(to, text string) map[string]any {
	return map[string]any{
		"id":      uuid.New().String(),
		"handler": "privatemessage",
		"to":      to,
		"text":    text,
	}
}

func memberListFrame(roomID string) map[string]any {
	return map[string]any{
		"id":      uuid.New().String(),
		"handler": "getoccupants",
		"roomid":  roomID,
	}
}

func moderationFrame(action ModAction, roomID, userID string) map[string]any {
	return map[string]any{
		"id":      uuid.New().String(),
		"handler": string(action),
		"roomid":  roomID,
		"userid":  userID,
	}
}
