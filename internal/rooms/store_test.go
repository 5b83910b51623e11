package rooms

import (
	"fmt"
	"testing"

	"roombot/internal/chat"
)

func observe(s *Store, raw string) {
	s.Observe(chat.ParseEvent([]byte(raw)))
}

const snapshot = `{"handler":"activeoccupants","roomid":"7","users":[{"username":"Alice","userid":"1"},{"username":"Bob","userid":"2"}]}`

func TestSnapshotThenLeave(t *testing.T) {
	s := NewStore("bot")
	observe(s, snapshot)
	observe(s, `{"handler":"userleave","roomid":"7","username":"Bob"}`)

	room, ok := s.ByID("7")
	if !ok {
		t.Fatalf("room 7 not found")
	}
	members := room.Members()
	if len(members) != 1 || members[0] != "Alice" {
		t.Fatalf("expected members [Alice], got %v", members)
	}
	ids := room.MemberIDs()
	if len(ids) != 1 || ids["alice"] != "1" {
		t.Fatalf("expected id map {alice:1}, got %v", ids)
	}
}

func TestObserveIdempotent(t *testing.T) {
	s := NewStore("bot")
	observe(s, snapshot)
	observe(s, snapshot)

	room, _ := s.ByID("7")
	if got := room.Members(); len(got) != 2 {
		t.Fatalf("replayed snapshot duplicated members: %v", got)
	}
	if got := room.MemberIDs(); len(got) != 2 {
		t.Fatalf("replayed snapshot duplicated ids: %v", got)
	}
}

func TestJoinIsIdempotentAndLeaveIsExact(t *testing.T) {
	s := NewStore("bot")
	observe(s, snapshot)
	observe(s, `{"handler":"userjoin","roomid":"7","username":"Alice","userid":"1"}`)
	observe(s, `{"handler":"userjoin","roomid":"7","username":"Carol","userid":"3"}`)
	observe(s, `{"handler":"userleave","roomid":"7","username":"carol"}`) // wrong case: no roster match

	room, _ := s.ByID("7")
	members := room.Members()
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %v", members)
	}
	observe(s, `{"handler":"userleave","roomid":"7","username":"Carol"}`)
	if got := room.Members(); len(got) != 2 {
		t.Fatalf("exact-name leave failed: %v", got)
	}
	if _, ok := room.MemberID("carol"); ok {
		t.Fatalf("carol's id should be gone")
	}
}

func TestMalformedEventIsolation(t *testing.T) {
	s := NewStore("bot")
	// Missing roomid: must not create state or panic.
	observe(s, `{"handler":"chatroommessage","username":"alice","text":"hi"}`)
	if names := s.Names(); len(names) != 0 {
		t.Fatalf("malformed event created rooms: %v", names)
	}
	// Subsequent well-formed events still apply cleanly.
	observe(s, snapshot)
	room, ok := s.ByID("7")
	if !ok || len(room.Members()) != 2 {
		t.Fatalf("well-formed event after malformed one did not apply")
	}
	// Snapshot without users must not clear an existing roster.
	observe(s, `{"handler":"activeoccupants","roomid":"7"}`)
	if got := room.Members(); len(got) != 2 {
		t.Fatalf("partial snapshot mutated roster: %v", got)
	}
}

func TestRoomIdentityResolution(t *testing.T) {
	s := NewStore("bot")
	// First seen with both name and id.
	observe(s, `{"handler":"userjoin","roomid":"7","name":"lobby","username":"Alice"}`)
	if _, ok := s.ByName("lobby"); !ok {
		t.Fatalf("room not found by name")
	}
	// Later events carrying only the id resolve to the same record.
	observe(s, `{"handler":"userjoin","roomid":"7","username":"Bob"}`)
	room, _ := s.ByName("lobby")
	if got := room.Members(); len(got) != 2 {
		t.Fatalf("id-only event went to a different room: %v", got)
	}
	byID, ok := s.ByID("7")
	if !ok || byID != room {
		t.Fatalf("ByID and ByName disagree")
	}
}

func TestRenameKeepsMapsConsistent(t *testing.T) {
	s := NewStore("bot")
	observe(s, `{"handler":"userjoin","roomid":"7","name":"lobby","username":"Alice"}`)
	observe(s, `{"handler":"roomrename","roomid":"7","name":"den"}`)

	if _, ok := s.ByName("lobby"); ok {
		t.Fatalf("old name still resolves")
	}
	room, ok := s.ByName("den")
	if !ok {
		t.Fatalf("new name does not resolve")
	}
	byID, ok := s.ByID("7")
	if !ok || byID != room {
		t.Fatalf("id no longer maps to renamed room")
	}
	if got := room.Members(); len(got) != 1 || got[0] != "Alice" {
		t.Fatalf("rename lost membership: %v", got)
	}
}

func TestHistoryBoundedAndClassified(t *testing.T) {
	s := NewStore("bot")
	observe(s, `{"handler":"chatroommessage","roomid":"7","username":"bot","text":"mine"}`)
	for i := 0; i < historyCap+10; i++ {
		observe(s, fmt.Sprintf(`{"handler":"chatroommessage","roomid":"7","username":"alice","text":"msg %d"}`, i))
	}
	room, _ := s.ByID("7")
	hist := room.History()
	if len(hist) != historyCap {
		t.Fatalf("expected history capped at %d, got %d", historyCap, len(hist))
	}
	// The self-authored entry was the oldest and should be evicted.
	for _, e := range hist {
		if e.Self {
			t.Fatalf("oldest entries were not evicted")
		}
	}
	if hist[len(hist)-1].Text != fmt.Sprintf("msg %d", historyCap+9) {
		t.Fatalf("history out of order: last=%q", hist[len(hist)-1].Text)
	}

	observe(s, `{"handler":"chatroommessage","roomid":"7","username":"bot","text":"me again"}`)
	hist = room.History()
	if !hist[len(hist)-1].Self {
		t.Fatalf("own message not classified as self")
	}
}
