package escrow

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// ReadTx is a consistent read-only view of program state.
type ReadTx interface {
	// Config returns ErrConfigNotInitialized when no config has been stored.
	Config(ctx context.Context) (Config, error)
	// Balance returns zero for accounts that have never been written.
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Tx is an atomic unit of work. Writes become visible only if the function
// passed to Store.Update returns nil.
type Tx interface {
	ReadTx
	PutConfig(ctx context.Context, cfg Config) error
	SetBalance(ctx context.Context, account solana.PublicKey, lamports uint64) error
	// AppendEvent appends ev to the log and returns the sequence number it
	// will have once the unit of work commits.
	AppendEvent(ctx context.Context, ev Event) (uint64, error)
}

// Store persists balances, config and the event log. Implementations must
// serialize units of work that touch the same accounts.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx ReadTx) error) error
	// Events returns up to limit events with Seq greater than after, in
	// sequence order.
	Events(ctx context.Context, after uint64, limit int) ([]Event, error)
	Ping(ctx context.Context) error
}
