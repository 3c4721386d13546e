package escrow

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	TreasurySeed = "treasury"
	ConfigSeed   = "config"
)

// DefaultProgramID is the program the treasury and config addresses are
// derived from when no other is configured.
var DefaultProgramID = solana.MustPublicKeyFromBase58("BUQFRUJECRCADvdtStPUgcBgnvcNZhSWbuqBraPWPKf8")

// Treasury is the pooled escrow account together with its derivation proof.
// Holding a Treasury is what allows the program to move funds out of the
// escrow; there is no other path.
type Treasury struct {
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`
}

func DeriveTreasury(programID solana.PublicKey) (Treasury, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(TreasurySeed)}, programID)
	if err != nil {
		return Treasury{}, fmt.Errorf("failed to derive treasury address: %w", err)
	}
	return Treasury{Address: addr, Bump: bump}, nil
}

func DeriveConfigAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(ConfigSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive config address: %w", err)
	}
	return addr, bump, nil
}

// Balance returns the escrow balance as seen by tx.
func (t Treasury) Balance(ctx context.Context, tx ReadTx) (uint64, error) {
	return tx.Balance(ctx, t.Address)
}

// ensure returns ErrInsufficientFunds unless the escrow holds at least amount.
func (t Treasury) ensure(ctx context.Context, tx ReadTx, amount uint64) (uint64, error) {
	bal, err := t.Balance(ctx, tx)
	if err != nil {
		return 0, err
	}
	if bal < amount {
		return bal, fmt.Errorf("%w: treasury has %d, need %d", ErrInsufficientFunds, bal, amount)
	}
	return bal, nil
}

// pay moves amount from the escrow to recipient.
func (t Treasury) pay(ctx context.Context, tx Tx, to Recipient, amount uint64) error {
	return transfer(ctx, tx, t.Address, to.Account, amount)
}

// transfer debits from and credits to by amount as a matched pair. Both
// balances are computed before either is written, so a failure on either
// side leaves both untouched.
func transfer(ctx context.Context, tx Tx, from, to solana.PublicKey, amount uint64) error {
	if from.Equals(to) {
		return fmt.Errorf("%w: transfer from %s to itself", ErrInvalidArgument, from)
	}
	fromBal, err := tx.Balance(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", from, err)
	}
	newFrom, err := checkedSub(fromBal, amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientFunds, from, fromBal, amount)
	}
	toBal, err := tx.Balance(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", to, err)
	}
	newTo, err := checkedAdd(toBal, amount)
	if err != nil {
		return err
	}
	if err := tx.SetBalance(ctx, from, newFrom); err != nil {
		return fmt.Errorf("failed to write balance of %s: %w", from, err)
	}
	if err := tx.SetBalance(ctx, to, newTo); err != nil {
		return fmt.Errorf("failed to write balance of %s: %w", to, err)
	}
	return nil
}
