package features

import (
	"context"
	"fmt"
	"log"
	"strings"

	"roombot/internal/chat"
	"roombot/internal/dispatch"
	"roombot/internal/kv"
)

// Score exposes the economy: balance lookups and a small leaderboard.
type Score struct {
	scores kv.Store
}

func NewScore(scores kv.Store) *Score { return &Score{scores: scores} }

func (s *Score) Name() string { return "score" }

func (s *Score) HandleCommand(b *dispatch.Bot, cmd dispatch.Command, ev chat.Event) bool {
	reply := func(text string) {
		if cmd.RoomID != "" {
			_ = b.SendRoomMessage(cmd.RoomID, text)
		} else {
			_ = b.SendDirectMessage(cmd.User, text)
		}
	}

	switch cmd.Name {
	case "balance":
		user := cmd.User
		if len(cmd.Args) > 0 {
			user = strings.TrimPrefix(cmd.Args[0], "@")
		}
		bal, err := s.scores.Balance(context.Background(), user)
		if err != nil {
			log.Printf("[score] balance lookup failed: %v", err)
			reply("scores unavailable")
			return true
		}
		reply(fmt.Sprintf("%s has %d", user, bal))
		return true
	case "top":
		entries, err := s.scores.Top(context.Background(), 5)
		if err != nil {
			log.Printf("[score] top lookup failed: %v", err)
			reply("scores unavailable")
			return true
		}
		if len(entries) == 0 {
			reply("no scores yet")
			return true
		}
		parts := make([]string, 0, len(entries))
		for i, e := range entries {
			parts = append(parts, fmt.Sprintf("%d. %s (%d)", i+1, e.User, e.Balance))
		}
		reply(strings.Join(parts, " | "))
		return true
	}
	return false
}
