package features

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"roombot/internal/chat"
	"roombot/internal/dispatch"
	"roombot/internal/kv"
	"roombot/internal/sessions"
)

const (
	minesBoardSize = 25
	minesCount     = 5
	minesMinStake  = 10
)

// MinesGame is one round of the per-room minefield game. One game per
// room; only the player who staked may act on it.
type MinesGame struct {
	Player    string
	Stake     int64
	Mines     map[int]bool
	Revealed  map[int]bool
	SafePicks int
}

func (g *MinesGame) payout() int64 {
	// 25% of the stake per safe pick on top of the stake itself.
	return g.Stake + g.Stake*int64(g.SafePicks)/4
}

// Mines is a stateful game feature exercising the session manager and
// the score store: stake debited up front, refunded if the game idles
// out before it resolves.
type Mines struct {
	games  *sessions.Manager[*MinesGame]
	scores kv.Store
}

func NewMines(sender dispatch.Sender, scores kv.Store, idle, sweep time.Duration) *Mines {
	m := &Mines{scores: scores}
	m.games = sessions.NewManager("mines", idle, sweep, func(k sessions.Key, g *MinesGame) {
		// Refund the stake; the connection may be down, the refund still
		// has to happen.
		if _, err := scores.Adjust(context.Background(), g.Player, g.Stake); err != nil {
			log.Printf("[mines] refund for %s failed: %v", g.Player, err)
		}
		_ = sender.SendRoomMessage(k.Room, fmt.Sprintf("%s's mines game timed out, %d refunded", g.Player, g.Stake))
	})
	return m
}

func (m *Mines) Name() string { return "mines" }

func (m *Mines) Stop() { m.games.Stop() }

func (m *Mines) HandleCommand(b *dispatch.Bot, cmd dispatch.Command, ev chat.Event) bool {
	switch cmd.Name {
	case "mines":
		return m.start(b, cmd)
	case "pick":
		return m.pick(b, cmd)
	case "cashout":
		return m.cashout(b, cmd)
	}
	return false
}

func (m *Mines) start(b *dispatch.Bot, cmd dispatch.Command) bool {
	if cmd.RoomID == "" {
		return true
	}
	if len(cmd.Args) == 0 {
		_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("usage: mines <stake>= %d+", minesMinStake))
		return true
	}
	stake, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil || stake < minesMinStake {
		_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("stake must be a number >= %d", minesMinStake))
		return true
	}

	key := sessions.Key{Room: cmd.RoomID}
	if g, ok := m.games.Get(key); ok {
		_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("a game by %s is already running here", g.Player))
		return true
	}

	bal, err := m.scores.Balance(context.Background(), cmd.User)
	if err != nil {
		log.Printf("[mines] balance lookup failed: %v", err)
		_ = b.SendRoomMessage(cmd.RoomID, "scores unavailable, try again later")
		return true
	}
	if bal < stake {
		_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("%s has %d, not enough for a %d stake", cmd.User, bal, stake))
		return true
	}
	if _, err := m.scores.Adjust(context.Background(), cmd.User, -stake); err != nil {
		log.Printf("[mines] stake debit failed: %v", err)
		return true
	}

	m.games.GetOrCreate(key, func() *MinesGame {
		return &MinesGame{
			Player:   cmd.User,
			Stake:    stake,
			Mines:    placeMines(),
			Revealed: make(map[int]bool),
		}
	})
	_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf(
		"%s staked %d on a %d-cell field with %d mines. pick 1-%d, cashout anytime",
		cmd.User, stake, minesBoardSize, minesCount, minesBoardSize))
	return true
}

func (m *Mines) pick(b *dispatch.Bot, cmd dispatch.Command) bool {
	if cmd.RoomID == "" || len(cmd.Args) == 0 {
		return false
	}
	cell, err := strconv.Atoi(cmd.Args[0])
	if err != nil || cell < 1 || cell > minesBoardSize {
		return false
	}
	key := sessions.Key{Room: cmd.RoomID}

	var (
		hit    bool
		dupe   bool
		picks  int
		stake  int64
		reward int64
	)
	ok := m.games.Update(key, func(gp **MinesGame) {
		g := *gp
		if g.Player != cmd.User {
			dupe = true // not this player's game; leave it alone
			return
		}
		if g.Revealed[cell] {
			dupe = true
			return
		}
		g.Revealed[cell] = true
		if g.Mines[cell] {
			hit = true
			stake = g.Stake
			return
		}
		g.SafePicks++
		picks = g.SafePicks
		reward = g.payout()
	})
	if !ok {
		// Game vanished mid-operation (evicted or cashed out): no-op.
		return true
	}
	if dupe {
		return true
	}
	if hit {
		m.games.Remove(key)
		_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("boom! cell %d was a mine, %s loses the %d stake", cell, cmd.User, stake))
		return true
	}
	_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("cell %d is clear (%d safe). cashout now pays %d", cell, picks, reward))
	return true
}

func (m *Mines) cashout(b *dispatch.Bot, cmd dispatch.Command) bool {
	if cmd.RoomID == "" {
		return false
	}
	key := sessions.Key{Room: cmd.RoomID}
	var (
		eligible bool
		reward   int64
		picks    int
	)
	m.games.Update(key, func(gp **MinesGame) {
		g := *gp
		if g.Player == cmd.User {
			eligible = true
			reward = g.payout()
			picks = g.SafePicks
		}
	})
	if !eligible {
		return true
	}
	if _, removed := m.games.Remove(key); !removed {
		// Resolved concurrently; nothing to pay.
		return true
	}
	if _, err := m.scores.Adjust(context.Background(), cmd.User, reward); err != nil {
		log.Printf("[mines] cashout credit failed: %v", err)
		return true
	}
	_ = b.SendRoomMessage(cmd.RoomID, fmt.Sprintf("%s cashes out %d after %d safe picks", cmd.User, reward, picks))
	return true
}

func placeMines() map[int]bool {
	mines := make(map[int]bool, minesCount)
	for len(mines) < minesCount {
		mines[rand.Intn(minesBoardSize)+1] = true
	}
	return mines
}
