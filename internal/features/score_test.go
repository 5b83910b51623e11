package features

import (
	"context"
	"testing"

	"roombot/internal/chat"
	"roombot/internal/kv"
)

func TestBalanceCommand(t *testing.T) {
	bot, sender := newBot("bot")
	scores := kv.NewMemory()
	if _, err := scores.Adjust(context.Background(), "alice", 75); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewScore(scores)

	if !s.HandleCommand(bot, roomCommand("balance"), chat.Event{}) {
		t.Fatalf("balance must be claimed")
	}
	if !sender.sawRoomMessage("75") {
		t.Fatalf("expected balance in reply, got %v", sender.roomMessages())
	}
}

func TestBalanceForOtherUser(t *testing.T) {
	bot, sender := newBot("bot")
	scores := kv.NewMemory()
	if _, err := scores.Adjust(context.Background(), "bob", 10); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewScore(scores)

	s.HandleCommand(bot, roomCommand("balance", "@Bob"), chat.Event{})
	if !sender.sawRoomMessage("10") {
		t.Fatalf("expected bob's balance, got %v", sender.roomMessages())
	}
}

func TestTopCommand(t *testing.T) {
	bot, sender := newBot("bot")
	scores := kv.NewMemory()
	for user, amount := range map[string]int64{"alice": 30, "bob": 50, "carol": 10} {
		if _, err := scores.Adjust(context.Background(), user, amount); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	s := NewScore(scores)

	s.HandleCommand(bot, roomCommand("top"), chat.Event{})
	msgs := sender.roomMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected one leaderboard message, got %v", msgs)
	}
	if !sender.sawRoomMessage("1. bob (50)") {
		t.Fatalf("expected bob on top, got %q", msgs[0])
	}
}

func TestTopEmpty(t *testing.T) {
	bot, sender := newBot("bot")
	s := NewScore(kv.NewMemory())
	s.HandleCommand(bot, roomCommand("top"), chat.Event{})
	if !sender.sawRoomMessage("no scores yet") {
		t.Fatalf("expected empty notice, got %v", sender.roomMessages())
	}
}
