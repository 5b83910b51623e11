package features

import (
	"strings"
	"sync"

	"roombot/internal/chat"
	"roombot/internal/dispatch"
	"roombot/internal/rooms"
)

// fakeSender records outbound traffic; eviction callbacks send from
// background goroutines, so it locks.
type fakeSender struct {
	mu       sync.Mutex
	user     string
	roomMsgs []string
	dms      []string
	modCalls []string
	listReqs []string
}

func (f *fakeSender) Username() string { return f.user }

func (f *fakeSender) SendRoomMessage(roomID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomMsgs = append(f.roomMsgs, roomID+":"+text)
	return nil
}

func (f *fakeSender) SendDirectMessage(to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, to+":"+text)
	return nil
}

func (f *fakeSender) RequestMemberList(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReqs = append(f.listReqs, roomID)
	return nil
}

func (f *fakeSender) SendModeration(action chat.ModAction, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modCalls = append(f.modCalls, string(action)+":"+roomID+":"+userID)
	return nil
}

func (f *fakeSender) moderations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.modCalls...)
}

func (f *fakeSender) roomMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roomMsgs...)
}

func (f *fakeSender) memberListRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listReqs...)
}

func (f *fakeSender) sawRoomMessage(substr string) bool {
	for _, m := range f.roomMessages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func newBot(user string) (*dispatch.Bot, *fakeSender) {
	s := &fakeSender{user: user}
	return &dispatch.Bot{Sender: s, Rooms: rooms.NewStore(user)}, s
}

func roomCommand(name string, args ...string) dispatch.Command {
	return dispatch.Command{Name: name, Args: args, RoomID: "7", User: "alice", UserID: "1"}
}
