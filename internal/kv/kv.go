package kv

import "context"

// BalanceEntry is one row of a leaderboard query.
type BalanceEntry struct {
	User    string
	Balance int64
}

// Store is the read/update surface features use for scores and stakes.
// Persistence beyond this interface is a collaborator concern.
type Store interface {
	Balance(ctx context.Context, user string) (int64, error)
	// Adjust adds delta (may be negative) to a user's balance and returns
	// the new value. Missing users start at zero.
	Adjust(ctx context.Context, user string, delta int64) (int64, error)
	Top(ctx context.Context, n int) ([]BalanceEntry, error)
	Ping(ctx context.Context) error
	Close() error
}
